package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"dompet/internal/export"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.reports.Dashboard(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := s.queryRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.reports.Summary(r.Context(), userID(r), pathKind(r), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	rng, err := s.queryRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ov, err := s.reports.Overview(r.Context(), userID(r), pathKind(r), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	rng, err := s.queryRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := s.reports.Insights(r.Context(), userID(r), pathKind(r), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// handleStatement renders into a buffer first so a failed export still gets
// a proper error status.
func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	rng, err := s.queryRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.reports.Statement(r.Context(), userID(r), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var (
		buf         bytes.Buffer
		contentType string
		format      = mux.Vars(r)["format"]
	)
	switch format {
	case "xml":
		contentType = "application/xml"
		err = export.WriteXML(&buf, st)
	default:
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = export.WriteXLSX(&buf, st)
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("render %s statement: %w", format, err))
		return
	}

	filename := fmt.Sprintf("statement_%s_%s.%s", rng.Start, rng.End, format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
