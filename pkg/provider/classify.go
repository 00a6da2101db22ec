package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorClass is the classified cause of a failed provider attempt.
type ErrorClass string

const (
	ClassTimeout   ErrorClass = "timeout"
	ClassCanceled  ErrorClass = "canceled"
	ClassNetwork   ErrorClass = "network"
	ClassRateLimit ErrorClass = "rate_limit"
	ClassServer    ErrorClass = "server"
	ClassClient    ErrorClass = "client"
	ClassEmpty     ErrorClass = "empty"
	ClassUnknown   ErrorClass = "unknown"
)

var (
	// ErrTimeout is returned when an attempt exceeds its deadline.
	ErrTimeout = errors.New("provider call timed out")
	// ErrEmptyCompletion is returned when a provider answers with no text.
	ErrEmptyCompletion = errors.New("provider returned empty completion")
	// ErrNoProviders is returned when no enabled provider is configured.
	ErrNoProviders = errors.New("no providers configured")
)

// StatusError is a non-2xx response from an upstream API.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.StatusCode, body)
}

// Classify determines the ErrorClass of a provider error.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return ClassEmpty
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return ClassRateLimit
		case statusErr.StatusCode >= 500:
			return ClassServer
		case statusErr.StatusCode >= 400:
			return ClassClient
		}
		return ClassUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}
	return ClassUnknown
}
