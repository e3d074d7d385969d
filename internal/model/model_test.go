package model

import (
	"math"
	"testing"
)

func TestTotalPrice(t *testing.T) {
	tests := []struct {
		name     string
		sessions int
		price    int64
		want     int64
	}{
		{name: "regular", sessions: 12, price: 1000, want: 12000},
		{name: "no sessions", sessions: 0, price: 1000, want: 0},
		{name: "negative sessions", sessions: -3, price: 1000, want: 0},
		{name: "free", sessions: 5, price: 0, want: 0},
		{name: "discount line", sessions: 2, price: -500, want: -1000},
		{name: "overflow", sessions: 1 << 40, price: 1 << 30, want: math.MaxInt64},
		{name: "negative overflow", sessions: 1 << 40, price: -(1 << 30), want: math.MinInt64},
		{name: "max price", sessions: 2, price: math.MaxInt64, want: math.MaxInt64},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Course{Sessions: tc.sessions, PricePerSession: tc.price}
			if got := c.TotalPrice(); got != tc.want {
				t.Fatalf("TotalPrice() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"yoga-101":    "yoga-101.ics",
		"../../etc":   "_.._etc.ics",
		"":            "course.ics",
		"Kurs Ä/2024": "Kurs___2024.ics",
		"yoga 101":    "yoga_101.ics",
	}
	for in, want := range tests {
		if got := (Course{ID: in}).FileName(); got != want {
			t.Fatalf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}
