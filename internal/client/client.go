// Package client talks to the dompet API on behalf of a logged-in user.
//
// Every authenticated call takes the Session explicitly. A call made without
// one returns ErrRedirectToLogin before any request is sent, and a 401 from
// the server clears the stored session and returns the same error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dompet/internal/core"
	"dompet/internal/log"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL *url.URL
	http    *http.Client
	store   TokenStore
	logger  *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger.WithComponent(log.ComponentClient) }
}

func New(baseURL string, store TokenStore, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		store:   store,
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session returns the stored session, or ErrRedirectToLogin.
func (c *Client) Session() (Session, error) {
	s, ok := c.store.Load()
	if !ok {
		return Session{}, ErrRedirectToLogin
	}
	return s, nil
}

func (c *Client) Register(ctx context.Context, in core.RegisterInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return err
	}
	return c.do(ctx, nil, http.MethodPost, "/api/auth/register", nil, in, nil)
}

// Login exchanges credentials for a session and stores it.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	in := core.LoginInput{Email: strings.TrimSpace(email), Password: password}
	if err := in.Validate(); err != nil {
		return Session{}, err
	}
	var res core.LoginResult
	err := c.do(ctx, nil, http.MethodPost, "/api/auth/login", nil, in, &res)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return Session{}, core.ErrInvalidCredential
	}
	if err != nil {
		return Session{}, err
	}
	s := Session{Token: res.Token, UserName: res.Name}
	if err := c.store.Save(s); err != nil {
		return Session{}, err
	}
	c.logger.InfoContext(ctx, "Logged in", log.FieldOperation, log.OpLogin)
	return s, nil
}

// Logout releases the session.
func (c *Client) Logout() error {
	return c.store.Clear()
}

// do performs one request. sess is nil only for the unauthenticated auth
// endpoints; a non-nil invalid session never reaches the network.
func (c *Client) do(ctx context.Context, sess *Session, method, path string, query url.Values, body, out any) error {
	_, err := c.send(ctx, sess, method, path, query, body, func(r io.Reader) error {
		if out == nil {
			return nil
		}
		return json.NewDecoder(r).Decode(out)
	})
	return err
}

func (c *Client) send(ctx context.Context, sess *Session, method, path string, query url.Values, body any, read func(io.Reader) error) (*http.Response, error) {
	if sess != nil && !sess.Valid() {
		return nil, ErrRedirectToLogin
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "dompet-client")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess != nil {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Request failed", log.FieldMethod, method, log.FieldPath, path, log.FieldError, err)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		if resp.StatusCode == http.StatusUnauthorized && sess != nil {
			if err := c.store.Clear(); err != nil {
				c.logger.WarnContext(ctx, "Failed to clear session", log.FieldError, err)
			}
			return resp, fmt.Errorf("%w: %v", ErrRedirectToLogin, apiErr)
		}
		if resp.StatusCode >= 500 {
			c.logger.ErrorContext(ctx, "Server error", log.FieldMethod, method, log.FieldPath, path, log.FieldStatusCode, resp.StatusCode, log.FieldError, apiErr)
		}
		return resp, apiErr
	}

	if read != nil {
		if err := read(resp.Body); err != nil {
			return resp, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Field = body.Field
	}
	return apiErr
}

func rangeQuery(r core.DateRange) url.Values {
	return url.Values{"start": {r.Start.String()}, "end": {r.End.String()}}
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}
