package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/go-github/v74/github"
)

// Kind classifies a gateway failure for callers that need to branch on it.
type Kind string

const (
	KindNetworkFailure    Kind = "network_failure"
	KindTimeout           Kind = "timeout"
	KindRateLimited       Kind = "rate_limited"
	KindAuthFailure       Kind = "auth_failure"
	KindPermissionDenied  Kind = "permission_denied"
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation_error"
	KindConflictOrUnknown Kind = "conflict_or_unknown"
)

// APIError wraps an upstream failure with its classification and, when one
// was available, the HTTP status code.
type APIError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("github: %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("github: %s: %v", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is transient enough that
// re-issuing the same request can succeed.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindNetworkFailure, KindTimeout, KindRateLimited:
		return true
	case KindConflictOrUnknown:
		return e.StatusCode == 0 || e.StatusCode >= 500
	}
	return false
}

// Classify maps any error coming out of a gateway call onto the taxonomy.
// Already-classified errors pass through unchanged.
func Classify(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &APIError{Kind: KindRateLimited, StatusCode: statusOf(rateErr.Response), Err: err}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &APIError{Kind: KindRateLimited, StatusCode: statusOf(abuseErr.Response), Err: err}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		status := statusOf(respErr.Response)
		return &APIError{Kind: kindForStatus(status), StatusCode: status, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &APIError{Kind: KindTimeout, Err: err}
	}

	return &APIError{Kind: KindNetworkFailure, Err: err}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuthFailure
	case http.StatusForbidden:
		return KindPermissionDenied
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return KindValidation
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	return KindConflictOrUnknown
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// RetryAfter extracts the server-specified retry interval from a rate-limit
// failure, or zero when none was given.
func RetryAfter(err error) time.Duration {
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.RetryAfter != nil {
		return *abuseErr.RetryAfter
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		if wait := time.Until(rateErr.Rate.Reset.Time); wait > 0 {
			return wait
		}
	}
	return 0
}

// IsNotFound reports whether err classifies as a missing resource.
func IsNotFound(err error) bool {
	apiErr := Classify(err)
	return apiErr != nil && apiErr.Kind == KindNotFound
}
