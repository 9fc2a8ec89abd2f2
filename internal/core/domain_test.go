package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-01-01", "2024-01-01", true},
		{" 2024-02-29 ", "2024-02-29", true},
		{"2024-03-05T10:00:00.000Z", "2024-03-05", true},
		{"2023-02-29", "", false},
		{"01/02/2024", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
		if !IsValidation(err) {
			t.Fatalf("%q expected validation error, got %v", tc.in, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Date Date `json:"date"`
	}
	if err := json.Unmarshal([]byte(`{"date":"2024-01-02"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !payload.Date.Equal(NewDate(2024, 1, 2).Time) {
		t.Fatalf("unexpected date %s", payload.Date)
	}
	b, _ := json.Marshal(payload)
	if string(b) != `{"date":"2024-01-02"}` {
		t.Fatalf("unexpected json %s", b)
	}
	b, _ = json.Marshal(struct {
		Date Date `json:"date"`
	}{})
	if string(b) != `{"date":null}` {
		t.Fatalf("zero date should marshal to null, got %s", b)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2024-05-06"); err != nil || d.String() != "2024-05-06" {
		t.Fatalf("scan string: %s %v", d, err)
	}
	if err := d.Scan([]byte("2024-05-07")); err != nil || d.String() != "2024-05-07" {
		t.Fatalf("scan bytes: %s %v", d, err)
	}
	if err := d.Scan(time.Date(2024, 5, 8, 13, 0, 0, 0, time.UTC)); err != nil || d.String() != "2024-05-08" {
		t.Fatalf("scan time: %s %v", d, err)
	}
	if err := d.Scan(42); err == nil {
		t.Fatalf("expected error for int")
	}
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{Category: "Food", Amount: NewMoney(50000), Date: NewDate(2024, 1, 1)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := int64(0)
	cases := []struct {
		name  string
		in    TransactionInput
		field string
	}{
		{"missing category", TransactionInput{Amount: NewMoney(1), Date: NewDate(2024, 1, 1)}, "category"},
		{"zero amount", TransactionInput{Category: "a", Amount: Zero, Date: NewDate(2024, 1, 1)}, "amount"},
		{"missing date", TransactionInput{Category: "a", Amount: NewMoney(1)}, "date"},
		{"bad installment", TransactionInput{Category: "a", Amount: NewMoney(1), Date: NewDate(2024, 1, 1), InstallmentID: &zero}, "installment_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, ve.Field)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("Income"); err != nil || k != Income {
		t.Fatalf("expected income, got %q %v", k, err)
	}
	if _, err := ParseKind("transfer"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", Uncategorized},
		{"food", "food"},
		{"Food ", "Food "},
		{"  ", "  "},
	}
	for _, tt := range tests {
		if got := NormalizeCategory(tt.in); got != tt.want {
			t.Errorf("NormalizeCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTransactionInputNormalize(t *testing.T) {
	in := TransactionInput{Category: "  Food \t", Amount: NewMoney(10), Date: NewDate(2024, 1, 1)}
	if got := in.Normalize().Category; got != "Food" {
		t.Fatalf("category = %q", got)
	}
	if in.Category != "  Food \t" {
		t.Fatal("Normalize must not modify the receiver")
	}
}
