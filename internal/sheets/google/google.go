package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"dompet/internal/core"
	"dompet/internal/log"
	ports "dompet/internal/sheets"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config holds the spreadsheet location and OAuth material. JSON fields win
// over their file counterparts.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

var _ ports.Mirror = (*Client)(nil)

// New creates a Sheets client from an installed-app OAuth client and a
// previously authorized token (see cmd/oauth-init).
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = log.Discard()
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Transactions"
	}

	clientJSON, err := readSecret(cfg.OAuthClientJSON, cfg.OAuthClientFile, "oauth client")
	if err != nil {
		return nil, err
	}
	oauthCfg, err := oauthgoogle.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenJSON, err := readSecret(cfg.OAuthTokenJSON, cfg.OAuthTokenFile, "oauth token")
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}

	// The token source refreshes through the pooled client.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := oauthCfg.Client(ctx, &tok)

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.Info("Google Sheets mirror ready", "spreadsheet_id", cfg.SpreadsheetID, "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheet: sheet, logger: logger}, nil
}

func readSecret(inline, file, what string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", what, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("missing %s (set the JSON value or a file path)", what)
	}
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// Append writes t to the row already holding its ID, or to the first free row.
// A header row is written when the sheet is empty.
func (c *Client) Append(ctx context.Context, t core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if t.ID <= 0 {
		return "", fmt.Errorf("transaction id is required")
	}

	column, err := c.idColumn(ctx)
	if err != nil {
		return "", err
	}

	row := ports.FindRow(column, t.ID)
	if row == 0 {
		if len(column) == 0 {
			if err := c.writeRow(ctx, 1, headerValues()); err != nil {
				return "", fmt.Errorf("write header: %w", err)
			}
			column = append(column, []any{ports.Header[0]})
		}
		row = len(column) + 1
	}

	if err := c.writeRow(ctx, row, ports.Row(t)); err != nil {
		return "", err
	}
	ref := fmt.Sprintf("%s!A%d:F%d", c.sheet, row, row)
	c.logger.Debug("Mirrored transaction", log.FieldTransactionID, t.ID, "row_ref", ref)
	return ref, nil
}

// Delete clears the row holding id. Rows are cleared, not removed, so other
// row references stay valid.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	column, err := c.idColumn(ctx)
	if err != nil {
		return err
	}
	row := ports.FindRow(column, id)
	if row == 0 {
		c.logger.Debug("Transaction not present in sheet", log.FieldTransactionID, id)
		return nil
	}
	rng := fmt.Sprintf("%s!A%d:F%d", c.sheet, row, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) idColumn(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) writeRow(ctx context.Context, row int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:F%d", c.sheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func headerValues() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}
