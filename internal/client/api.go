package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"dompet/internal/core"
)

func kindPath(kind core.Kind) (string, error) {
	if !kind.Valid() {
		return "", &core.ValidationError{Field: "type", Reason: "must be income or expense"}
	}
	return "/api/" + string(kind), nil
}

func (c *Client) Dashboard(ctx context.Context, s Session) (core.DashboardSummary, error) {
	var d core.DashboardSummary
	err := c.do(ctx, &s, http.MethodGet, "/api/dashboard", nil, nil, &d)
	return d, err
}

func (c *Client) Summary(ctx context.Context, s Session, kind core.Kind, r core.DateRange) (core.KindSummary, error) {
	var out core.KindSummary
	err := c.rangeGet(ctx, s, kind, "/summary", r, &out)
	return out, err
}

func (c *Client) Overview(ctx context.Context, s Session, kind core.Kind, r core.DateRange) (core.Overview, error) {
	var out core.Overview
	err := c.rangeGet(ctx, s, kind, "/overview", r, &out)
	return out, err
}

func (c *Client) Insights(ctx context.Context, s Session, kind core.Kind, r core.DateRange) (core.Insights, error) {
	var out core.Insights
	err := c.rangeGet(ctx, s, kind, "/insights", r, &out)
	return out, err
}

func (c *Client) rangeGet(ctx context.Context, s Session, kind core.Kind, suffix string, r core.DateRange, out any) error {
	base, err := kindPath(kind)
	if err != nil {
		return err
	}
	if _, err := core.NewDateRange(r.Start, r.End); err != nil {
		return err
	}
	return c.do(ctx, &s, http.MethodGet, base+suffix, rangeQuery(r), nil, out)
}

func (c *Client) ListTransactions(ctx context.Context, s Session, kind core.Kind) ([]core.Transaction, error) {
	base, err := kindPath(kind)
	if err != nil {
		return nil, err
	}
	var out []core.Transaction
	err = c.do(ctx, &s, http.MethodGet, base+"/all", nil, nil, &out)
	return out, err
}

func (c *Client) GetTransaction(ctx context.Context, s Session, kind core.Kind, id int64) (core.Transaction, error) {
	base, err := kindPath(kind)
	if err != nil {
		return core.Transaction{}, err
	}
	var out core.Transaction
	err = c.do(ctx, &s, http.MethodGet, idPath(base, id), nil, nil, &out)
	return out, err
}

// CreateTransaction validates locally first; an expense paying an
// installment is checked by the server since its amount may be derived.
func (c *Client) CreateTransaction(ctx context.Context, s Session, kind core.Kind, in core.TransactionInput) (core.Transaction, error) {
	base, err := kindPath(kind)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := validateTransaction(kind, in); err != nil {
		return core.Transaction{}, err
	}
	var out core.Transaction
	err = c.do(ctx, &s, http.MethodPost, base, nil, in, &out)
	return out, err
}

func (c *Client) UpdateTransaction(ctx context.Context, s Session, kind core.Kind, id int64, in core.TransactionInput) (core.Transaction, error) {
	base, err := kindPath(kind)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := validateTransaction(kind, in); err != nil {
		return core.Transaction{}, err
	}
	var out core.Transaction
	err = c.do(ctx, &s, http.MethodPut, idPath(base, id), nil, in, &out)
	return out, err
}

func (c *Client) DeleteTransaction(ctx context.Context, s Session, kind core.Kind, id int64) error {
	base, err := kindPath(kind)
	if err != nil {
		return err
	}
	return c.do(ctx, &s, http.MethodDelete, idPath(base, id), nil, nil, nil)
}

func validateTransaction(kind core.Kind, in core.TransactionInput) error {
	if in.InstallmentID == nil {
		return in.Validate()
	}
	if kind != core.Expense {
		return &core.ValidationError{Field: "installment_id", Reason: "only expenses can pay an installment"}
	}
	if *in.InstallmentID <= 0 {
		return &core.ValidationError{Field: "installment_id", Reason: "must be a positive id"}
	}
	if err := in.Date.Validate(); err != nil {
		return &core.ValidationError{Field: "date", Reason: "is required"}
	}
	return nil
}

// ListInstallments with status "" lists every non-deleted installment;
// StatusActive is the expense form's picker.
func (c *Client) ListInstallments(ctx context.Context, s Session, status core.InstallmentStatus) ([]core.InstallmentView, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {string(status)}}
	}
	var out []core.InstallmentView
	err := c.do(ctx, &s, http.MethodGet, "/api/installments", q, nil, &out)
	return out, err
}

func (c *Client) GetInstallment(ctx context.Context, s Session, id int64) (core.InstallmentView, error) {
	var out core.InstallmentView
	err := c.do(ctx, &s, http.MethodGet, idPath("/api/installments", id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateInstallment(ctx context.Context, s Session, in core.InstallmentInput) (core.InstallmentView, error) {
	if err := in.Validate(); err != nil {
		return core.InstallmentView{}, err
	}
	var out core.InstallmentView
	err := c.do(ctx, &s, http.MethodPost, "/api/installments", nil, in, &out)
	return out, err
}

func (c *Client) UpdateInstallment(ctx context.Context, s Session, id int64, in core.InstallmentInput) (core.InstallmentView, error) {
	if err := in.Validate(); err != nil {
		return core.InstallmentView{}, err
	}
	var out core.InstallmentView
	err := c.do(ctx, &s, http.MethodPut, idPath("/api/installments", id), nil, in, &out)
	return out, err
}

func (c *Client) DeleteInstallment(ctx context.Context, s Session, id int64) error {
	return c.do(ctx, &s, http.MethodDelete, idPath("/api/installments", id), nil, nil, nil)
}

func (c *Client) ListPayments(ctx context.Context, s Session, id int64) ([]core.Payment, error) {
	var out []core.Payment
	err := c.do(ctx, &s, http.MethodGet, idPath("/api/installments", id)+"/payments", nil, nil, &out)
	return out, err
}

func (c *Client) RecordPayment(ctx context.Context, s Session, id int64, in core.PaymentInput) (core.Payment, error) {
	if in.Amount.IsNegative() {
		return core.Payment{}, &core.ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	var out core.Payment
	err := c.do(ctx, &s, http.MethodPost, idPath("/api/installments", id)+"/payments", nil, in, &out)
	return out, err
}

// Statement downloads the export for r as "xml" or "xlsx".
func (c *Client) Statement(ctx context.Context, s Session, format string, r core.DateRange) ([]byte, error) {
	if format != "xml" && format != "xlsx" {
		return nil, &core.ValidationError{Field: "format", Reason: "must be xml or xlsx"}
	}
	if _, err := core.NewDateRange(r.Start, r.End); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	_, err := c.send(ctx, &s, http.MethodGet, "/api/export/statement."+format, rangeQuery(r), nil, func(body io.Reader) error {
		_, err := io.Copy(&buf, body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("download statement: %w", err)
	}
	return buf.Bytes(), nil
}
