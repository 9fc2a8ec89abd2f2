package core

import (
	"encoding/json"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"50000", "50000", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"12,5", "12.5", true},
		{"1.000.000", "1000000", true},
		{"1,000,000", "1000000", true},
		{"1.234,5", "1234.5", true},
		{"Rp 250000", "250000", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := NewMoney(1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := Zero.Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		Amount Money `json:"amount"`
	}
	for _, in := range []string{`{"amount":50000}`, `{"amount":"50000"}`} {
		if err := json.Unmarshal([]byte(in), &v); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if !v.Amount.Equal(NewMoney(50000)) {
			t.Fatalf("%s: got %s", in, v.Amount)
		}
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) != `{"amount":50000}` {
		t.Fatalf("unexpected json %s (err=%v)", b, err)
	}
}

func TestSum(t *testing.T) {
	got := Sum(NewMoney(50000), NewMoney(30000), NewMoney(20000))
	if !got.Equal(NewMoney(100000)) {
		t.Fatalf("expected 100000, got %s", got)
	}
	if !Sum().Equal(Zero) {
		t.Fatalf("empty sum should be zero")
	}
}
