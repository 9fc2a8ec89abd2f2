package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"dompet/internal/core"
	"dompet/internal/log"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// badRequestError marks malformed requests that never reached validation.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	// Headers are already sent; an encode failure means the client went away.
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error onto its status code. Anything unrecognised is a
// 500 whose cause is logged but never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *core.ValidationError
		be *badRequestError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: ve.Error(), Field: ve.Field})
	case errors.As(err, &be):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: be.msg})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, core.ErrInvalidCredential):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: core.ErrInvalidCredential.Error()})
	case errors.Is(err, core.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="dompet"`)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthenticated"})
	case errors.Is(err, core.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorBody{Error: core.ErrEmailTaken.Error(), Field: "email"})
	case errors.Is(err, core.ErrInstallmentClosed):
		writeJSON(w, http.StatusConflict, errorBody{Error: core.ErrInstallmentClosed.Error()})
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// decodeJSON reads a single JSON object into dst. An empty body is allowed
// only when allowEmpty is set, leaving dst untouched.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return badRequest("request body is required")
		}
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			return err
		}
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

func pathKind(r *http.Request) core.Kind {
	return core.Kind(mux.Vars(r)["kind"])
}

// queryRange reads start/end, or a 7d/30d preset, falling back to the default
// window when neither is given.
func (s *Server) queryRange(r *http.Request) (core.DateRange, error) {
	q := r.URL.Query()
	start, end := strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end"))
	if start == "" && end == "" {
		switch q.Get("preset") {
		case "":
			return s.reports.DefaultRange(), nil
		case "7d":
			return s.reports.LastDays(7), nil
		case "30d":
			return s.reports.LastDays(30), nil
		default:
			return core.DateRange{}, &core.ValidationError{Field: "preset", Reason: "must be 7d or 30d"}
		}
	}
	return core.ParseDateRange(start, end)
}
