package http

import (
	"context"
	"net/http"
	"strings"

	"dompet/internal/core"
	"dompet/internal/log"
)

type contextKey string

const userIDKey contextKey = "user_id"

// requireAuth resolves the bearer token to a user id. Handlers behind it
// never see a request without one.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, core.ErrUnauthenticated)
			return
		}
		userID, err := s.accounts.Authenticate(token)
		if err != nil {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Rejected bearer token",
				log.FieldComponent, log.ComponentAuth,
				log.FieldError, err)
			writeError(w, r, core.ErrUnauthenticated)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in core.RegisterInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.accounts.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in core.LoginInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.accounts.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
