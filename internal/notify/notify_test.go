package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/jordan-wright/email"

	"dompet/internal/core"
)

func sampleReminder() Reminder {
	return Reminder{
		UserName:        "Sari",
		Email:           "sari@example.com",
		InstallmentID:   7,
		InstallmentName: "Motor",
		Amount:          core.NewMoney(1500000),
		DueDate:         core.NewDate(2024, 2, 29),
		DaysLeft:        3,
		RemainingMonths: 4,
	}
}

func TestSubject(t *testing.T) {
	r := sampleReminder()
	tests := []struct {
		days int
		want string
	}{
		{0, "due today"},
		{1, "due tomorrow"},
		{3, "due in 3 days"},
	}
	for _, tt := range tests {
		r.DaysLeft = tt.days
		if got := Subject(r); !strings.Contains(got, tt.want) {
			t.Errorf("Subject(days=%d) = %q, want it to contain %q", tt.days, got, tt.want)
		}
	}
}

func TestBody(t *testing.T) {
	body := Body(sampleReminder(), core.DefaultLocale)
	for _, want := range []string{"Hi Sari", "Rp 1.500.000", "29/02/2024", "remaining after this one: 3"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestEmailNotifier(t *testing.T) {
	n := NewEmailNotifier(EmailConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "dompet@example.com"}, core.DefaultLocale)

	var sent *email.Email
	var gotAddr string
	var gotAuth smtp.Auth
	n.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		sent, gotAddr, gotAuth = e, addr, auth
		return nil
	}

	if err := n.Notify(context.Background(), sampleReminder()); err != nil {
		t.Fatal(err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotAuth == nil {
		t.Error("expected plain auth when a username is set")
	}
	if sent.From != "dompet@example.com" || len(sent.To) != 1 || sent.To[0] != "sari@example.com" {
		t.Errorf("unexpected envelope: from=%q to=%v", sent.From, sent.To)
	}
	if !strings.Contains(sent.Subject, "Motor") {
		t.Errorf("subject = %q", sent.Subject)
	}
}

func TestEmailNotifier_Errors(t *testing.T) {
	n := NewEmailNotifier(EmailConfig{Host: "h", Port: 25}, core.DefaultLocale)
	n.send = func(*email.Email, string, smtp.Auth) error { return errors.New("connection refused") }

	r := sampleReminder()
	if err := n.Notify(context.Background(), r); err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected send error, got %v", err)
	}
	r.Email = ""
	if err := n.Notify(context.Background(), r); err == nil {
		t.Error("expected error for missing recipient")
	}
}

type fakeSender struct {
	channel string
	content string
	err     error
}

func (f *fakeSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel, f.content = channelID, content
	if f.err != nil {
		return nil, f.err
	}
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func TestDiscordNotifier(t *testing.T) {
	sender := &fakeSender{}
	n := &DiscordNotifier{session: sender, channelID: "123", locale: core.DefaultLocale}

	if err := n.Notify(context.Background(), sampleReminder()); err != nil {
		t.Fatal(err)
	}
	if sender.channel != "123" {
		t.Errorf("channel = %q", sender.channel)
	}
	if !strings.HasPrefix(sender.content, "**Installment \"Motor\"") {
		t.Errorf("content = %q", sender.content)
	}

	sender.err = errors.New("missing access")
	if err := n.Notify(context.Background(), sampleReminder()); err == nil {
		t.Error("expected error")
	}
}

type stubNotifier struct {
	name  string
	err   error
	calls int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Notify(context.Context, Reminder) error {
	s.calls++
	return s.err
}

func TestMulti(t *testing.T) {
	a := &stubNotifier{name: "a", err: errors.New("down")}
	b := &stubNotifier{name: "b"}
	m := Multi{a, b}

	err := m.Notify(context.Background(), sampleReminder())
	if err == nil || !strings.Contains(err.Error(), "a: down") {
		t.Fatalf("expected joined error from a, got %v", err)
	}
	if b.calls != 1 {
		t.Error("b should be called even though a failed")
	}
	if m.Name() != "a,b" {
		t.Errorf("Name() = %q", m.Name())
	}
	if err := (Multi{b}).Notify(context.Background(), sampleReminder()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOverdueReminderText(t *testing.T) {
	r := sampleReminder()
	r.Missed = 2
	r.Amount = core.NewMoney(3000000)
	if got := Subject(r); !strings.Contains(got, "2 missed payment(s)") {
		t.Errorf("subject = %q", got)
	}
	if body := Body(r, core.DefaultLocale); !strings.Contains(body, "Rp 3.000.000 in total") {
		t.Errorf("body = %q", body)
	}
}
