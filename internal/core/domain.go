package core

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	StatusActive  InstallmentStatus = "active"
	StatusClosed  InstallmentStatus = "closed"
	StatusDeleted InstallmentStatus = "deleted"
)

// InstallmentCategory is the fixed category label carried by expenses that pay an installment.
const InstallmentCategory = "cicilan"

// Uncategorized replaces an empty category when grouping.
const Uncategorized = "Tanpa Kategori"

const dateLayout = "2006-01-02"

type (
	Kind string

	InstallmentStatus string

	Date struct {
		time.Time
	}

	User struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		Email        string `json:"email"`
		PasswordHash string `json:"-"`
	}

	Transaction struct {
		ID            int64  `json:"id"`
		UserID        int64  `json:"-"`
		Kind          Kind   `json:"type"`
		Category      string `json:"category"`
		Amount        Money  `json:"amount"`
		Date          Date   `json:"date"`
		InstallmentID *int64 `json:"installment_id"`
	}

	// TransactionInput is the writable part of a transaction as sent by clients.
	TransactionInput struct {
		Category      string `json:"category"`
		Amount        Money  `json:"amount"`
		Date          Date   `json:"date"`
		InstallmentID *int64 `json:"installment_id,omitempty"`
	}
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrInstallmentClosed = errors.New("installment is not active")
)

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

// ParseKind accepts the path segment used by the API ("income" or "expense").
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", invalid("type", "must be income or expense")
	}
	return k, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses YYYY-MM-DD. Longer ISO strings are truncated to their date part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, invalid("date", "must be YYYY-MM-DD")
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores dates as YYYY-MM-DD text.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = DateOf(v.UTC())
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return fmt.Errorf("scan date %q: %w", v, err)
		}
		*d = parsed
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
	return nil
}

// Validate checks the fields a transaction must carry before it is persisted.
func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.Category) == "" {
		return invalid("category", "is required")
	}
	if len(in.Category) > 100 {
		return invalid("category", "too long (max 100 characters)")
	}
	if err := in.Amount.Validate(); err != nil {
		return invalid("amount", err.Error())
	}
	if err := in.Date.Validate(); err != nil {
		return invalid("date", "is required")
	}
	if in.InstallmentID != nil && *in.InstallmentID <= 0 {
		return invalid("installment_id", "must be a positive id")
	}
	return nil
}

// Normalize trims the category once, before the transaction is stored.
func (in TransactionInput) Normalize() TransactionInput {
	in.Category = strings.TrimSpace(in.Category)
	return in
}

// NormalizeCategory maps an empty category to the Uncategorized label. Any
// other value is kept byte for byte.
func NormalizeCategory(c string) string {
	if c == "" {
		return Uncategorized
	}
	return c
}
