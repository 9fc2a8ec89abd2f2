package http

import (
	"net/http"

	"dompet/internal/core"
)

// handleListInstallments serves both the list screen and, with
// ?status=active, the expense form's installment picker.
func (s *Server) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	status := core.InstallmentStatus(r.URL.Query().Get("status"))
	views, err := s.ledger.ListInstallments(r.Context(), userID(r), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if views == nil {
		views = []core.InstallmentView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateInstallment(w http.ResponseWriter, r *http.Request) {
	var in core.InstallmentInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.ledger.CreateInstallment(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleGetInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.ledger.GetInstallment(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleUpdateInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in core.InstallmentInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.ledger.UpdateInstallment(r.Context(), userID(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteInstallment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteInstallment(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := s.ledger.ListPayments(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if payments == nil {
		payments = []core.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

// handleRecordPayment accepts an empty body: amount then defaults to the
// monthly payment and date to today.
func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in core.PaymentInput
	if err := decodeJSON(r, &in, true); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.ledger.RecordPayment(r.Context(), userID(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
