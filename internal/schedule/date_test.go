package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != NewDate(2024, time.February, 29) {
		t.Fatalf("parsed %+v", d)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("string = %q", d.String())
	}

	for _, bad := range []string{"", "2024-13-01", "2023-02-29", "01/02/2024", "2024-1-5"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseDate(%q) err = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.December, 31)
	if got := d.AddDays(1); got != NewDate(2025, time.January, 1) {
		t.Fatalf("AddDays(1) = %s", got)
	}
	if got := d.AddDays(-366); got != NewDate(2023, time.December, 31) {
		t.Fatalf("AddDays(-366) = %s", got)
	}
	if n := NewDate(2024, time.January, 1).DaysUntil(d); n != 365 {
		t.Fatalf("DaysUntil = %d, want 365", n)
	}
	if !NewDate(2024, time.January, 1).Before(d) || d.Before(d) || !d.After(NewDate(2024, time.December, 30)) {
		t.Fatal("ordering is wrong")
	}
	if NewDate(2024, time.April, 31).Valid() {
		t.Fatal("April 31 must be invalid")
	}
}

func TestDateWeekday(t *testing.T) {
	tests := map[string]Weekday{
		"2024-01-01": Monday,
		"2024-01-03": Wednesday,
		"2024-01-06": Saturday,
		"2024-01-07": Sunday,
	}
	for s, want := range tests {
		if got := mustDate(t, s).Weekday(); got != want {
			t.Fatalf("%s weekday = %s, want %s", s, got, want)
		}
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	instant := time.Date(2024, time.January, 1, 20, 0, 0, 0, time.UTC)
	if got := DateOf(instant.In(seoul)); got != NewDate(2024, time.January, 2) {
		t.Fatalf("DateOf in KST = %s", got)
	}
}

func TestDateTextRoundTrip(t *testing.T) {
	var d Date
	if err := d.UnmarshalText([]byte("2024-05-06")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b, _ := d.MarshalText()
	if string(b) != "2024-05-06" {
		t.Fatalf("marshal = %q", b)
	}
	if err := d.UnmarshalText(nil); err != nil || !d.IsZero() {
		t.Fatalf("empty unmarshal: %+v %v", d, err)
	}
}

func TestParseWeekdays(t *testing.T) {
	set, err := ParseWeekdays([]string{"monday", "WED", " friday ,sat", ""})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if set.Len() != 4 {
		t.Fatalf("len = %d", set.Len())
	}
	for _, w := range []Weekday{Monday, Wednesday, Friday, Saturday} {
		if !set.Has(w) {
			t.Fatalf("missing %s", w)
		}
	}
	if set.Has(Sunday) {
		t.Fatal("unexpected Sunday")
	}
	if set.String() != "Mon,Wed,Fri,Sat" {
		t.Fatalf("string = %q", set.String())
	}

	for _, bad := range []string{"mo", "Funday", "mondays"} {
		if _, err := ParseWeekdays([]string{bad}); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseWeekdays(%q) err = %v", bad, err)
		}
	}
}

func TestWeekdaySetIgnoresInvalidDays(t *testing.T) {
	s := NewWeekdaySet(Weekday(0), Weekday(9))
	if !s.Empty() {
		t.Fatalf("expected empty set, got %q", s)
	}
}

func TestDateSetSorted(t *testing.T) {
	s, err := ParseDates([]string{"2024-03-01", "2024-01-15", "", "2024-01-15"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := s.Sorted()
	if len(got) != 2 || got[0].String() != "2024-01-15" || got[1].String() != "2024-03-01" {
		t.Fatalf("sorted = %v", got)
	}

	var nilSet DateSet
	if nilSet.Has(got[0]) {
		t.Fatal("nil set must be empty")
	}
	if _, err := ParseDates([]string{"2024-01-01", "nope"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
