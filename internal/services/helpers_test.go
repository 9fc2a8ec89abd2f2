package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.Open(context.Background(), storage.Config{
		Dialect:    storage.SQLite,
		SQLitePath: filepath.Join(t.TempDir(), "dompet.db"),
	})
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createUser(t *testing.T, repo *storage.Repository, name, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Name: name, Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func installmentInput(months int) core.InstallmentInput {
	return core.InstallmentInput{
		Name:           "Motor",
		Principal:      core.NewMoney(12000000),
		MonthlyPayment: core.NewMoney(1000000),
		TotalMonths:    months,
		StartDate:      core.NewDate(2024, 1, 1),
		DueDay:         15,
	}
}

func fixedClock(y, m, d int) func() time.Time {
	return func() time.Time { return time.Date(y, time.Month(m), d, 10, 0, 0, 0, time.UTC) }
}

type event struct {
	Type          amqp.EventType
	UserID        int64
	TransactionID int64
	InstallmentID int64
}

type fakePublisher struct {
	mu     sync.Mutex
	events []event
	err    error
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, userID, id int64, _ string) error {
	return p.record(event{Type: amqp.EventTransactionSync, UserID: userID, TransactionID: id})
}

func (p *fakePublisher) PublishTransactionDeleted(_ context.Context, userID, id int64, _ string) error {
	return p.record(event{Type: amqp.EventTransactionDeleted, UserID: userID, TransactionID: id})
}

func (p *fakePublisher) PublishInstallmentEvent(_ context.Context, t amqp.EventType, userID, installmentID int64) error {
	return p.record(event{Type: t, UserID: userID, InstallmentID: installmentID})
}

func (p *fakePublisher) record(e event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls map[int64]int
}

func (c *countingInvalidator) Invalidate(_ context.Context, userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = map[int64]int{}
	}
	c.calls[userID]++
}

func (c *countingInvalidator) count(userID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[userID]
}
