package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCity_EmptyAndWhitespace(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		_, err := ValidateCity(input, 100)
		if !errors.Is(err, ErrCityEmpty) {
			t.Errorf("ValidateCity(%q) error = %v, want ErrCityEmpty", input, err)
		}
	}
}

func TestValidateCity_TooLong(t *testing.T) {
	_, err := ValidateCity(strings.Repeat("a", 101), 100)
	if !errors.Is(err, ErrCityTooLong) {
		t.Errorf("error = %v, want ErrCityTooLong", err)
	}
}

// TestValidateCity_Valid verifies real place names pass unchanged apart from trimming.
func TestValidateCity_Valid(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Paris", "Paris"},
		{"  Lisbon  ", "Lisbon"},
		{"St. Petersburg", "St. Petersburg"},
		{"Stratford-upon-Avon", "Stratford-upon-Avon"},
		{"L'Aquila", "L'Aquila"},
		{"São Paulo", "São Paulo"},
		{"Zürich", "Zürich"},
		{"東京", "東京"},
		{"Springfield, IL", "Springfield, IL"},
		{"pariss", "pariss"},
		{"दिल्ली", "दिल्ली"},
		{"Washington (D.C.)", "Washington (D.C.)"},
		{"Trinidad & Tobago", "Trinidad & Tobago"},
		{"city?format=j1", "city?format=j1"},
	}
	for _, tc := range tests {
		got, err := ValidateCity(tc.input, 100)
		if err != nil {
			t.Errorf("ValidateCity(%q) unexpected error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ValidateCity(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestValidateCity_NoLimit(t *testing.T) {
	long := strings.Repeat("a", 500)
	got, err := ValidateCity(long, 0)
	if err != nil || got != long {
		t.Errorf("ValidateCity(500 runes, 0) = (%d runes, %v), want accepted", len(got), err)
	}
}

func TestValidateMessage(t *testing.T) {
	if _, err := ValidateMessage("  ", 10); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("blank message error = %v, want ErrMessageEmpty", err)
	}
	if _, err := ValidateMessage(strings.Repeat("x", 11), 10); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("long message error = %v, want ErrMessageTooLong", err)
	}
	if _, err := ValidateMessage(strings.Repeat("x", 5000), 0); err != nil {
		t.Errorf("unlimited message error = %v, want nil", err)
	}
	got, err := ValidateMessage(" What should I wear? ", 0)
	if err != nil || got != "What should I wear?" {
		t.Errorf("ValidateMessage() = (%q, %v), want trimmed message", got, err)
	}
}
