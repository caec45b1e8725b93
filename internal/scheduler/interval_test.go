package scheduler

import (
	"errors"
	"testing"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"05:30", 330, false},
		{"5:30", 330, false},
		{" 23:59 ", 1439, false},
		{"12:30", 750, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"12:5", 0, true},
		{"1230", 0, true},
		{"", 0, true},
		{"ab:cd", 0, true},
		{"-1:30", 0, true},
		{"+5:00", 0, true},
		{"-0:00", 0, true},
		{"12:+5", 0, true},
		{"1 :30", 0, true},
		{"12:30:00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTime) {
					t.Errorf("Expected ErrInvalidTime, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[int]string{0: "00:00", 750: "12:30", 1439: "23:59", 1440: "00:00", -1: "23:59"}
	for in, want := range cases {
		if got := FormatClock(in); got != want {
			t.Errorf("FormatClock(%d): expected %s, got %s", in, want, got)
		}
	}
}

func TestInterval_Contains(t *testing.T) {
	dhuhr := Interval{Name: "Dhuhr", Start: "12:30", End: "13:00"}
	night := Interval{Name: "Night", Start: "23:30", End: "00:30"}
	single := Interval{Name: "Single", Start: "10:00", End: "10:00"}

	tests := []struct {
		name   string
		iv     Interval
		minute string
		want   bool
	}{
		{"before start", dhuhr, "12:29", false},
		{"start inclusive", dhuhr, "12:30", true},
		{"inside", dhuhr, "12:45", true},
		{"end inclusive", dhuhr, "13:00", true},
		{"after end", dhuhr, "13:01", false},
		{"wrap late evening", night, "23:45", true},
		{"wrap at midnight", night, "00:00", true},
		{"wrap early morning", night, "00:30", true},
		{"wrap after end", night, "00:31", false},
		{"wrap midday", night, "12:00", false},
		{"wrap just before start", night, "23:29", false},
		{"single minute hit", single, "10:00", true},
		{"single minute miss", single, "10:01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseClock(tt.minute)
			if err != nil {
				t.Fatalf("bad fixture %q: %v", tt.minute, err)
			}
			got, err := tt.iv.Contains(m)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v at %s, got %v", tt.want, tt.minute, got)
			}
		})
	}
}

func TestInterval_ContainsMalformed(t *testing.T) {
	for _, iv := range []Interval{
		{Name: "empty"},
		{Name: "bad start", Start: "noon", End: "13:00"},
		{Name: "bad end", Start: "12:00", End: "25:00"},
	} {
		hit, err := iv.Contains(750)
		if hit {
			t.Errorf("%s: malformed interval must not match", iv.Name)
		}
		if !errors.Is(err, ErrInvalidTime) {
			t.Errorf("%s: expected ErrInvalidTime, got %v", iv.Name, err)
		}
		if iv.Validate() == nil {
			t.Errorf("%s: expected Validate to fail", iv.Name)
		}
	}
}

func TestDefaultIntervals(t *testing.T) {
	defaults := DefaultIntervals()
	names := []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

	if len(defaults) != len(names) {
		t.Fatalf("Expected %d defaults, got %d", len(names), len(defaults))
	}
	for i, iv := range defaults {
		if iv.Name != names[i] {
			t.Errorf("Expected %s at %d, got %s", names[i], i, iv.Name)
		}
		if iv.Enabled {
			t.Errorf("%s should be disabled by default", iv.Name)
		}
		if err := iv.Validate(); err != nil {
			t.Errorf("%s has invalid default times: %v", iv.Name, err)
		}
	}

	// Returned slices are independent
	defaults[0].Enabled = true
	if DefaultIntervals()[0].Enabled {
		t.Error("DefaultIntervals must return a fresh slice")
	}
}
