package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/aluiziolira/go-inventory-bridge/models"
)

// ErrTimeout indicates the attempt ran past its deadline (or the consumer
// answered 408).
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a transport failure before a response arrived.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrUnauthorized indicates the consumer refused the bearer token (HTTP 401/403).
type ErrUnauthorized struct {
	Err error
}

func (e ErrUnauthorized) Error() string {
	return fmt.Errorf("unauthorized: %w", e.Err).Error()
}

func (e ErrUnauthorized) Unwrap() error {
	return e.Err
}

// ErrRejected indicates the consumer refused the batch itself: a 4xx status or
// a 200 response with success set to false.
type ErrRejected struct {
	Err error
}

func (e ErrRejected) Error() string {
	return fmt.Errorf("rejected: %w", e.Err).Error()
}

func (e ErrRejected) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the consumer answered 429.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrServer indicates a 5xx or otherwise unexpected status.
type ErrServer struct {
	Err error
}

func (e ErrServer) Error() string {
	return fmt.Errorf("server: %w", e.Err).Error()
}

func (e ErrServer) Unwrap() error {
	return e.Err
}

// ErrBadResponse indicates a success status whose body could not be read or decoded.
type ErrBadResponse struct {
	Err error
}

func (e ErrBadResponse) Error() string {
	return fmt.Errorf("bad_response: %w", e.Err).Error()
}

func (e ErrBadResponse) Unwrap() error {
	return e.Err
}

// classifyError maps a transport error or a non-2xx status to a typed error.
// A nil result means the exchange succeeded at the HTTP level.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout{Err: err}
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrTimeout{Err: err}
		}
		return ErrConnection{Err: err}
	}

	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	wrapped := fmt.Errorf("http status %d", statusCode)
	switch {
	case statusCode == http.StatusRequestTimeout:
		return ErrTimeout{Err: wrapped}
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimited{Err: wrapped}
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return ErrUnauthorized{Err: wrapped}
	case statusCode >= 400 && statusCode < 500:
		return ErrRejected{Err: wrapped}
	default:
		return ErrServer{Err: wrapped}
	}
}

// outcomeOf decides whether a classified error is worth another attempt.
// Only refusals by the consumer are fatal.
func outcomeOf(err error) models.Outcome {
	if err == nil {
		return models.OutcomeSuccess
	}
	var rejected ErrRejected
	if errors.As(err, &rejected) {
		return models.OutcomeFatalFailure
	}
	var unauthorized ErrUnauthorized
	if errors.As(err, &unauthorized) {
		return models.OutcomeFatalFailure
	}
	return models.OutcomeRetryableFailure
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var unauthorized ErrUnauthorized
	if errors.As(err, &unauthorized) {
		return "unauthorized"
	}
	var rejected ErrRejected
	if errors.As(err, &rejected) {
		return "rejected"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var server ErrServer
	if errors.As(err, &server) {
		return "server"
	}
	var bad ErrBadResponse
	if errors.As(err, &bad) {
		return "bad_response"
	}
	return "other"
}
