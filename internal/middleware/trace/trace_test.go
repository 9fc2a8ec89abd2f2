package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rr.Header().Get(HeaderRequestID), seen)
	}
	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d", rr.Code)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("total requests = %d", got)
	}
}

func TestMiddlewareKeepsIncomingID(t *testing.T) {
	m := NewMiddleware(nil)
	incoming := uuid.NewString()
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, incoming)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != incoming {
		t.Errorf("got %q, want %q", seen, incoming)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "not-a-uuid")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not-a-uuid" {
		t.Error("malformed incoming id must be replaced")
	}
}
