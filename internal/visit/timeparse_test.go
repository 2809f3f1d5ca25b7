package visit

import (
	"errors"
	"testing"
	"time"
)

func TestParseInstant(t *testing.T) {
	want := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339 utc", "2024-01-01T09:00:00Z", want},
		{"rfc3339 offset", "2024-01-01T04:00:00-05:00", want},
		{"fractional seconds", "2024-01-01T09:00:00.000Z", want},
		{"datetime-local", "2024-01-01T09:00", want},
		{"seconds no zone", "2024-01-01T09:00:00", want},
		{"space separated", "2024-01-01 09:00", want},
		{"surrounding space", "  2024-01-01T09:00:00Z ", want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInstant(tt.input)
			if err != nil {
				t.Fatalf("ParseInstant(%q): %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseInstant(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestParseInstantRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"   ",
		"tomorrow",
		"2024-13-01T09:00:00Z",
		"2024-02-30T09:00:00Z",
		"01/02/2024",
		"0001-01-01T00:00:00Z",
		"1969-12-31T23:59:59Z",
	} {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseInstant(input); !errors.Is(err, ErrInvalidTime) {
				t.Errorf("ParseInstant(%q) err = %v, want ErrInvalidTime", input, err)
			}
		})
	}
}

func TestParseVisitType(t *testing.T) {
	tests := []struct {
		input   string
		want    VisitType
		wantErr bool
	}{
		{"Ask", Ask, false},
		{"service", Service, false},
		{"SALES", Sales, false},
		{"repair", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseVisitType(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidVisitType) {
				t.Errorf("ParseVisitType(%q) err = %v, want ErrInvalidVisitType", tt.input, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseVisitType(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
		}
	}
}

func TestVisitTypeValid(t *testing.T) {
	tests := []struct {
		t    VisitType
		want bool
	}{
		{Ask, true},
		{Service, true},
		{Sales, true},
		{"invalid", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.t.IsValid(); got != tt.want {
			t.Errorf("VisitType(%q).IsValid() = %v, want %v", tt.t, got, tt.want)
		}
	}
}
