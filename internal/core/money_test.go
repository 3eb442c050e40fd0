package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half away from zero
		{"12.345", 1235, true},
		{" 2.50 ", 250, true},
		{"-1", -100, true},
		{"-0.5", -50, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"10000000000000000", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		1234:   "12.34",
		-50:    "-0.50",
		100000: "1000.00",
	}
	for cents, want := range cases {
		if got := NewMoney(cents).String(); got != want {
			t.Fatalf("%d: expected %q, got %q", cents, want, got)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 12.5, "b": "3.999"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A.Cents != 1250 || v.B.Cents != 400 {
		t.Fatalf("unexpected values: %+v", v)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":12.50,"b":4.00}` {
		t.Fatalf("unexpected json %s", out)
	}
	if err := json.Unmarshal([]byte(`{"a": "x"}`), &v); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a, b := NewMoney(700), NewMoney(250)
	if a.Add(b).Cents != 950 || a.Sub(b).Cents != 450 || a.Neg().Cents != -700 {
		t.Fatalf("arithmetic mismatch")
	}
	if !b.LessThan(a) || a.LessThan(b) {
		t.Fatalf("LessThan mismatch")
	}
}

func TestMoneyCheckedAdd(t *testing.T) {
	got, err := NewMoney(700).CheckedAdd(NewMoney(-250))
	if err != nil || got.Cents != 450 {
		t.Fatalf("expected 450, got %d (%v)", got.Cents, err)
	}
	cases := []struct{ a, b int64 }{
		{math.MaxInt64 - 50, 100},
		{math.MaxInt64, 1},
		{math.MinInt64 + 50, -100},
	}
	for _, tc := range cases {
		if _, err := NewMoney(tc.a).CheckedAdd(NewMoney(tc.b)); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%d + %d: expected ErrInvalidAmount, got %v", tc.a, tc.b, err)
		}
	}
	if got, err := NewMoney(math.MaxInt64 - 100).CheckedAdd(NewMoney(100)); err != nil || got.Cents != math.MaxInt64 {
		t.Fatalf("sum at the limit must succeed, got %d (%v)", got.Cents, err)
	}
}
