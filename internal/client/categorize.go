package client

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/kjstillabower/tour-guide-service/internal/circuitbreaker"
)

// ErrorCategory is a stable label for error classification in metrics and logs.
type ErrorCategory string

const (
	ErrorCategoryTimeout          ErrorCategory = "timeout"
	ErrorCategoryNetwork          ErrorCategory = "network"
	ErrorCategoryLocationNotFound ErrorCategory = "location_not_found"
	ErrorCategoryUpstream         ErrorCategory = "upstream"
	ErrorCategoryCircuitOpen      ErrorCategory = "circuit_open"
	ErrorCategoryParsing          ErrorCategory = "parsing"
	ErrorCategoryUnknown          ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return ErrorCategoryCircuitOpen
	}
	if errors.Is(err, ErrLocationNotFound) {
		if strings.Contains(err.Error(), "parse") {
			return ErrorCategoryParsing
		}
		return ErrorCategoryLocationNotFound
	}
	if errors.Is(err, ErrUpstreamFailure) {
		return ErrorCategoryUpstream
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorCategoryTimeout
		}
		return ErrorCategoryNetwork
	}
	msg := err.Error()
	if strings.Contains(msg, "timeout") {
		return ErrorCategoryTimeout
	}
	if strings.Contains(msg, "connection") || strings.Contains(msg, "http request failed") {
		return ErrorCategoryNetwork
	}
	return ErrorCategoryUnknown
}

// CountsAgainstUpstream reports whether err reflects an unhealthy provider. An unknown city is a
// correct answer and must not open the breaker.
func CountsAgainstUpstream(err error) bool {
	return err != nil && !errors.Is(err, ErrLocationNotFound)
}
