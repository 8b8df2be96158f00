package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"

	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx response
type APIError struct {
	Code       string
	Message    string
	Field      string
	StatusCode int
	Details    map[string]interface{}
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%d] %s: %s (%s)", e.StatusCode, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// ParseError converts an error response into an APIError
func ParseError(resp *resty.Response) error {
	status := resp.StatusCode()

	var body ErrorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Code != "" {
		return &APIError{
			Code:       body.Code,
			Message:    body.Message,
			Field:      body.Field,
			StatusCode: status,
			Details:    body.Details,
		}
	}

	msg := string(resp.Body())
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Code: "UNKNOWN_ERROR", Message: msg, StatusCode: status}
}

// CheckResponse turns transport errors and non-2xx responses into errors
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return ParseError(resp)
	}
	return nil
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }
func IsForbidden(err error) bool    { return statusOf(err) == http.StatusForbidden }
func IsNotFound(err error) bool     { return statusOf(err) == http.StatusNotFound }
func IsConflict(err error) bool     { return statusOf(err) == http.StatusConflict }

// IsNetworkError reports whether the request never got a response
func IsNetworkError(err error) bool {
	if err == nil || statusOf(err) != 0 {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// IsRetryable reports whether repeating the request may succeed
func IsRetryable(err error) bool {
	if IsNetworkError(err) {
		return true
	}
	status := statusOf(err)
	return status == http.StatusTooManyRequests || status >= 500
}

// IsPreSendError reports whether the request failed before any byte could
// reach the server: a failed dial, DNS lookup or refused connection. Only
// these are safe to repeat for writes that are not idempotent.
func IsPreSendError(err error) bool {
	if err == nil || statusOf(err) != 0 {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
