package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/text/language"

	"dompet/internal/core"
)

type stubAPI struct {
	requests atomic.Int64
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	auth     []string
}

func newStub(t *testing.T) (*stubAPI, *Client, *MemoryStore) {
	t.Helper()
	stub := &stubAPI{routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.requests.Add(1)
		stub.mu.Lock()
		stub.auth = append(stub.auth, r.Header.Get("Authorization"))
		h, ok := stub.routes[r.Method+" "+r.URL.Path]
		stub.mu.Unlock()
		if !ok {
			reply(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	store := NewMemoryStore()
	c, err := New(srv.URL, store, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return stub, c, store
}

func (s *stubAPI) handle(pattern string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[pattern] = h
}

func (s *stubAPI) lastAuth() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.auth) == 0 {
		return ""
	}
	return s.auth[len(s.auth)-1]
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jan() core.DateRange {
	return core.DateRange{Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 31)}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	if _, err := New("not a url", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestCallsWithoutSessionNeverReachNetwork(t *testing.T) {
	stub, c, _ := newStub(t)
	ctx := context.Background()

	if _, err := c.Session(); !errors.Is(err, ErrRedirectToLogin) {
		t.Fatalf("Session() = %v", err)
	}
	_, err := c.Dashboard(ctx, Session{})
	if !errors.Is(err, ErrRedirectToLogin) {
		t.Fatalf("Dashboard err = %v", err)
	}
	if Classify(err) != KindUnauthenticated {
		t.Errorf("Classify = %v", Classify(err))
	}
	if _, err := c.Summary(ctx, Session{}, core.Expense, jan()); !errors.Is(err, ErrRedirectToLogin) {
		t.Errorf("Summary err = %v", err)
	}
	if err := c.DeleteInstallment(ctx, Session{}, 1); !errors.Is(err, ErrRedirectToLogin) {
		t.Errorf("DeleteInstallment err = %v", err)
	}
	if n := stub.requests.Load(); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestLoginStoresSessionAndSendsBearer(t *testing.T) {
	stub, c, store := newStub(t)
	stub.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in core.LoginInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email != "sari@example.com" {
			reply(w, http.StatusBadRequest, map[string]string{"error": "bad body"})
			return
		}
		reply(w, http.StatusOK, core.LoginResult{Token: "tok-1", Name: "Sari"})
	})
	stub.handle("GET /api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, core.DashboardSummary{UserName: "Sari", TotalBalance: core.NewMoney(600000)})
	})

	sess, err := c.Login(context.Background(), " sari@example.com ", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token != "tok-1" || sess.UserName != "Sari" {
		t.Fatalf("session = %+v", sess)
	}
	if stored, ok := store.Load(); !ok || stored != sess {
		t.Fatalf("stored = %+v, %v", stored, ok)
	}

	d, err := c.Dashboard(context.Background(), sess)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if !d.TotalBalance.Equal(core.NewMoney(600000)) {
		t.Errorf("balance = %s", d.TotalBalance)
	}
	if got := stub.lastAuth(); got != "Bearer tok-1" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestLoginRejected(t *testing.T) {
	stub, c, store := newStub(t)
	stub.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password"})
	})

	_, err := c.Login(context.Background(), "sari@example.com", "wrongpass")
	if !errors.Is(err, core.ErrInvalidCredential) {
		t.Fatalf("err = %v", err)
	}
	if Classify(err) != KindValidation {
		t.Errorf("Classify = %v", Classify(err))
	}
	if _, ok := store.Load(); ok {
		t.Error("store should stay empty")
	}

	before := stub.requests.Load()
	if _, err := c.Login(context.Background(), "  ", "secret1"); Field(err) != "email" {
		t.Errorf("Field = %q (%v)", Field(err), err)
	}
	if stub.requests.Load() != before {
		t.Error("invalid input must not be sent")
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	stub, c, store := newStub(t)
	stub.handle("GET /api/income/all", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
	})
	sess := Session{Token: "expired", UserName: "Sari"}
	if err := store.Save(sess); err != nil {
		t.Fatal(err)
	}

	_, err := c.ListTransactions(context.Background(), sess, core.Income)
	if !errors.Is(err, ErrRedirectToLogin) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := store.Load(); ok {
		t.Error("session should be cleared after 401")
	}
	if got := UserMessage(language.English, err); got != "Please log in again." {
		t.Errorf("UserMessage = %q", got)
	}
}

func TestServerErrorsAreClassified(t *testing.T) {
	stub, c, _ := newStub(t)
	stub.handle("POST /api/expense", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusUnprocessableEntity, map[string]string{"error": "category is required", "field": "category"})
	})
	stub.handle("GET /api/installments/9", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	})
	stub.handle("POST /api/installments/3/payments", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusConflict, map[string]string{"error": "installment is not active"})
	})
	sess := Session{Token: "tok"}
	ctx := context.Background()

	// The server may reject what local validation let through, e.g. an
	// installment id that belongs to another user.
	id := int64(5)
	_, err := c.CreateTransaction(ctx, sess, core.Expense, core.TransactionInput{Date: core.NewDate(2024, 1, 5), InstallmentID: &id})
	if Classify(err) != KindValidation || Field(err) != "category" {
		t.Errorf("422: kind=%v field=%q err=%v", Classify(err), Field(err), err)
	}

	_, err = c.GetInstallment(ctx, sess, 9)
	if Classify(err) != KindTransport {
		t.Errorf("500: kind=%v", Classify(err))
	}
	if got := UserMessage(language.English, err); got != "Something went wrong. Please try again." {
		t.Errorf("500 message = %q", got)
	}

	_, err = c.RecordPayment(ctx, sess, 3, core.PaymentInput{})
	if Classify(err) != KindValidation || UserMessage(language.English, err) != "installment is not active" {
		t.Errorf("409: kind=%v message=%q", Classify(err), UserMessage(language.English, err))
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestLocalValidation(t *testing.T) {
	stub, c, _ := newStub(t)
	sess := Session{Token: "tok"}
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() error
		field string
	}{
		{"missing category", func() error {
			_, err := c.CreateTransaction(ctx, sess, core.Income, core.TransactionInput{Amount: core.NewMoney(10), Date: core.NewDate(2024, 1, 1)})
			return err
		}, "category"},
		{"installment on income", func() error {
			id := int64(1)
			_, err := c.CreateTransaction(ctx, sess, core.Income, core.TransactionInput{Date: core.NewDate(2024, 1, 1), InstallmentID: &id})
			return err
		}, "installment_id"},
		{"bad kind", func() error {
			_, err := c.ListTransactions(ctx, sess, core.Kind("transfer"))
			return err
		}, "type"},
		{"reversed range", func() error {
			_, err := c.Overview(ctx, sess, core.Expense, core.DateRange{Start: core.NewDate(2024, 2, 1), End: core.NewDate(2024, 1, 1)})
			return err
		}, "end"},
		{"installment without name", func() error {
			_, err := c.CreateInstallment(ctx, sess, core.InstallmentInput{})
			return err
		}, "name"},
		{"update with zero amount", func() error {
			_, err := c.UpdateTransaction(ctx, sess, core.Expense, 3, core.TransactionInput{Category: "Food", Date: core.NewDate(2024, 1, 1)})
			return err
		}, "amount"},
		{"get with bad kind", func() error {
			_, err := c.GetTransaction(ctx, sess, core.Kind("transfer"), 3)
			return err
		}, "type"},
		{"installment update with bad due day", func() error {
			in := installmentFields()
			in.DueDay = 0
			_, err := c.UpdateInstallment(ctx, sess, 4, in)
			return err
		}, "due_day"},
		{"unknown export format", func() error {
			_, err := c.Statement(ctx, sess, "pdf", jan())
			return err
		}, "format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if Classify(err) != KindValidation || Field(err) != tt.field {
				t.Errorf("kind=%v field=%q err=%v", Classify(err), Field(err), err)
			}
		})
	}
	if n := stub.requests.Load(); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func installmentFields() core.InstallmentInput {
	return core.InstallmentInput{
		Name:           "Motor",
		Principal:      core.NewMoney(12000000),
		MonthlyPayment: core.NewMoney(1000000),
		TotalMonths:    12,
		StartDate:      core.NewDate(2024, 1, 1),
		DueDay:         31,
	}
}

func TestTransactionGetAndUpdate(t *testing.T) {
	stub, c, _ := newStub(t)
	stored := core.Transaction{ID: 3, Kind: core.Expense, Category: "Food", Amount: core.NewMoney(50000), Date: core.NewDate(2024, 1, 5)}
	stub.handle("GET /api/expense/3", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, stored)
	})
	stub.handle("PUT /api/expense/3", func(w http.ResponseWriter, r *http.Request) {
		var in core.TransactionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			reply(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		out := stored
		out.Category, out.Amount, out.Date = in.Category, in.Amount, in.Date
		reply(w, http.StatusOK, out)
	})
	sess := Session{Token: "tok"}
	ctx := context.Background()

	got, err := c.GetTransaction(ctx, sess, core.Expense, 3)
	if err != nil || got.Category != "Food" || !got.Amount.Equal(core.NewMoney(50000)) {
		t.Fatalf("get = %+v, %v", got, err)
	}

	updated, err := c.UpdateTransaction(ctx, sess, core.Expense, 3, core.TransactionInput{
		Category: "Transport", Amount: core.NewMoney(20000), Date: core.NewDate(2024, 1, 6),
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Category != "Transport" || !updated.Amount.Equal(core.NewMoney(20000)) || updated.Date.String() != "2024-01-06" {
		t.Errorf("updated = %+v", updated)
	}
	if stub.lastAuth() != "Bearer tok" {
		t.Errorf("auth = %q", stub.lastAuth())
	}

	if _, err := c.GetTransaction(ctx, sess, core.Expense, 99); Classify(err) != KindTransport {
		t.Errorf("404: kind=%v err=%v", Classify(err), err)
	}
}

func TestInstallmentUpdateAndDelete(t *testing.T) {
	stub, c, _ := newStub(t)
	var sentStatus atomic.Value
	stub.handle("PUT /api/installments/4", func(w http.ResponseWriter, r *http.Request) {
		var in core.InstallmentInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			reply(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		sentStatus.Store(string(in.Status))
		v := core.InstallmentView{Installment: core.Installment{ID: 4, Name: in.Name, TotalMonths: in.TotalMonths, Status: core.StatusClosed}}
		reply(w, http.StatusOK, v)
	})
	var deleted atomic.Bool
	stub.handle("DELETE /api/installments/4", func(w http.ResponseWriter, r *http.Request) {
		deleted.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})
	sess := Session{Token: "tok"}
	ctx := context.Background()

	in := installmentFields()
	in.Name = "Motor Beat"
	v, err := c.UpdateInstallment(ctx, sess, 4, in)
	if err != nil {
		t.Fatal(err)
	}
	if v.Name != "Motor Beat" || v.Status != core.StatusClosed {
		t.Errorf("view = %+v", v)
	}
	if got := sentStatus.Load(); got != "" {
		t.Errorf("status must be omitted when not set, sent %q", got)
	}

	if err := c.DeleteInstallment(ctx, sess, 4); err != nil {
		t.Fatal(err)
	}
	if !deleted.Load() {
		t.Error("delete request not sent")
	}
	if err := c.DeleteInstallment(ctx, sess, 5); Classify(err) != KindTransport {
		t.Errorf("missing installment: kind=%v err=%v", Classify(err), err)
	}
}

func TestStatementDownload(t *testing.T) {
	stub, c, _ := newStub(t)
	stub.handle("GET /api/export/statement.xml", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "2024-01-01" || r.URL.Query().Get("end") != "2024-01-31" {
			reply(w, http.StatusUnprocessableEntity, map[string]string{"error": "bad range", "field": "start"})
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, "<statement/>")
	})

	b, err := c.Statement(context.Background(), Session{Token: "tok"}, "xml", jan())
	if err != nil {
		t.Fatalf("Statement: %v", err)
	}
	if string(b) != "<statement/>" {
		t.Errorf("body = %q", b)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
	if _, ok := store.Load(); ok {
		t.Fatal("empty store reported a session")
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear on missing file: %v", err)
	}

	want := Session{Token: "tok", UserName: "Sari"}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok := NewFileStore(store.path).Load()
	if !ok || got != want {
		t.Fatalf("Load = %+v, %v", got, ok)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := store.Load(); ok {
		t.Error("session survived Clear")
	}
}

func TestStateLatestWins(t *testing.T) {
	var s State[int]
	first := s.Begin()
	second := s.Begin()

	if !s.Commit(second, 2, nil) {
		t.Fatal("latest load must commit")
	}
	if s.Commit(first, 1, nil) {
		t.Fatal("stale load must not commit")
	}
	v, loaded, err := s.Snapshot()
	if v != 2 || !loaded || err != nil {
		t.Fatalf("snapshot = %d %v %v", v, loaded, err)
	}

	failed := s.Begin()
	boom := errors.New("boom")
	s.Commit(failed, 0, boom)
	v, loaded, err = s.Snapshot()
	if v != 2 || !loaded || !errors.Is(err, boom) {
		t.Fatalf("after failure = %d %v %v", v, loaded, err)
	}
}

func TestKindScreenKeepsStateOnFailure(t *testing.T) {
	stub, c, _ := newStub(t)
	var failOverview atomic.Bool
	stub.handle("GET /api/expense/summary", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, core.KindSummary{Total: core.NewMoney(400)})
	})
	stub.handle("GET /api/expense/overview", func(w http.ResponseWriter, r *http.Request) {
		if failOverview.Load() {
			reply(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		reply(w, http.StatusOK, core.Overview{TotalAmount: core.NewMoney(400)})
	})
	stub.handle("GET /api/expense/insights", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, core.Insights{Total: core.NewMoney(400)})
	})

	screen := NewKindScreen(c, core.Expense)
	sess := Session{Token: "tok"}
	if err := screen.Load(context.Background(), sess, jan()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	failOverview.Store(true)
	feb := core.DateRange{Start: core.NewDate(2024, 2, 1), End: core.NewDate(2024, 2, 29)}
	err := screen.Load(context.Background(), sess, feb)
	if Classify(err) != KindTransport {
		t.Fatalf("err = %v", err)
	}

	data, loaded, stateErr := screen.State.Snapshot()
	if !loaded || stateErr == nil {
		t.Fatalf("loaded=%v err=%v", loaded, stateErr)
	}
	if data.Range != jan() || !data.Overview.TotalAmount.Equal(core.NewMoney(400)) {
		t.Errorf("state changed after failed load: %+v", data)
	}
}

func TestDashboardScreen(t *testing.T) {
	stub, c, _ := newStub(t)
	stub.handle("GET /api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, core.DashboardSummary{UserName: "Sari", TotalBalance: core.NewMoney(600000)})
	})
	stub.handle("GET /api/installments", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != "active" {
			reply(w, http.StatusUnprocessableEntity, map[string]string{"error": "status", "field": "status"})
			return
		}
		reply(w, http.StatusOK, []core.InstallmentView{{Installment: core.Installment{ID: 1, Name: "Motor"}}})
	})

	screen := NewDashboardScreen(c)
	if err := screen.Load(context.Background(), Session{Token: "tok"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	data, _, _ := screen.State.Snapshot()
	if data.Summary.UserName != "Sari" || len(data.Installments) != 1 {
		t.Errorf("data = %+v", data)
	}
}

func TestExpenseFormPick(t *testing.T) {
	stub, c, _ := newStub(t)
	stub.handle("GET /api/installments", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []core.InstallmentView{{Installment: core.Installment{
			ID: 7, Name: "Motor", MonthlyPayment: core.NewMoney(1500000), Status: core.StatusActive,
		}}})
	})
	form := NewExpenseForm(c)
	if err := form.LoadChoices(context.Background(), Session{Token: "tok"}); err != nil {
		t.Fatalf("LoadChoices: %v", err)
	}

	in, err := form.Pick(core.TransactionInput{Category: "food", Date: core.NewDate(2024, 1, 5)}, 7)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if in.Category != core.InstallmentCategory || !in.Amount.Equal(core.NewMoney(1500000)) || in.InstallmentID == nil || *in.InstallmentID != 7 {
		t.Errorf("input = %+v", in)
	}

	if _, err := form.Pick(core.TransactionInput{}, 99); Field(err) != "installment_id" {
		t.Errorf("unknown installment: %v", err)
	}
}

func TestUserMessageIsLocalized(t *testing.T) {
	generic := &APIError{Status: http.StatusInternalServerError, Message: "internal server error"}
	tests := []struct {
		name   string
		locale string
		err    error
		want   string
	}{
		{"generic id", "id-ID", generic, "Terjadi kesalahan. Silakan coba lagi."},
		{"generic en", "en-US", generic, "Something went wrong. Please try again."},
		{"login id", "id-ID", ErrRedirectToLogin, "Silakan masuk kembali."},
		{"credential id", "id-ID", core.ErrInvalidCredential, "Email atau kata sandi salah."},
		{"field keeps wording", "id-ID", &core.ValidationError{Field: "amount", Reason: "must be greater than 0"}, (&core.ValidationError{Field: "amount", Reason: "must be greater than 0"}).Error()},
		{"no error", "id-ID", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewDisplay(tt.locale).Error(tt.err); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
