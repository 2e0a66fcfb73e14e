package timeline

import (
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"Coding", CategoryCoding},
		{"  meeting ", CategoryMeeting},
		{"COMMUNICATION", CategoryCommunication},
		{"", CategoryOther},
		{"Gaming", CategoryOther},
	}

	for _, tt := range tests {
		if got := ParseCategory(tt.in); got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCategoryColor(t *testing.T) {
	for _, c := range Categories {
		if !c.IsValid() {
			t.Errorf("%q should be valid", c)
		}
		if c.Color() == "" {
			t.Errorf("%q has no color", c)
		}
	}

	if got := Category("Gaming").Color(); got != CategoryOther.Color() {
		t.Errorf("unknown category color = %q, want Other color %q", got, CategoryOther.Color())
	}
}

func TestDayKey(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	ts := time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)

	if got := DayKey(ts, loc); got != "2026-01-02" {
		t.Errorf("DayKey = %q, want 2026-01-02", got)
	}
	if got := DayKey(ts, time.UTC); got != "2026-01-01" {
		t.Errorf("DayKey = %q, want 2026-01-01", got)
	}
}

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2026-02-11", time.UTC)
	if err != nil {
		t.Fatalf("ParseDay: %v", err)
	}
	if day.Year() != 2026 || day.Month() != time.February || day.Day() != 11 {
		t.Errorf("ParseDay = %v", day)
	}

	if _, err := ParseDay("11/02/2026", time.UTC); err == nil {
		t.Error("expected error for malformed day")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0s"},
		{9, "9s"},
		{187, "3m 07s"},
		{3900, "1h 05m"},
		{-5, "0s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
