// Package validation checks user input before it reaches upstream APIs.
package validation

import (
	"errors"
	"strings"
)

var (
	// ErrCityEmpty is returned when the city is empty or whitespace-only after trim.
	ErrCityEmpty = errors.New("city name is required")
	// ErrCityTooLong is returned when the city exceeds the configured rune count.
	ErrCityTooLong = errors.New("city name too long")
	// ErrMessageEmpty is returned when a chat message is empty or whitespace-only.
	ErrMessageEmpty = errors.New("message is required")
	// ErrMessageTooLong is returned when a chat message exceeds the configured rune count.
	ErrMessageTooLong = errors.New("message too long")
)

// ValidateCity trims the input and enforces maxLen (runes, 0 = unlimited). Any other text is
// accepted as typed; the weather client path-escapes it.
func ValidateCity(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrCityEmpty
	}
	if maxLen > 0 && len([]rune(s)) > maxLen {
		return "", ErrCityTooLong
	}
	return s, nil
}

// ValidateMessage trims a chat message and enforces maxLen (runes, 0 = unlimited).
func ValidateMessage(input string, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrMessageEmpty
	}
	if maxLen > 0 && len([]rune(s)) > maxLen {
		return "", ErrMessageTooLong
	}
	return s, nil
}
