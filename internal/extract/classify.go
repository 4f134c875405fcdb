package extract

import (
	"context"
	"errors"
	"strings"

	"github.com/local/docconvert/internal/document"
)

// ErrNoContent is returned when a strategy ran cleanly but produced
// nothing usable, for example native extraction on a scanned page.
var ErrNoContent = errors.New("no extractable content")

// OutcomeFor maps an extraction error to an attempt outcome. Auth and
// configuration errors are hard failures: retrying with the same
// configuration cannot succeed. Everything else that can vary per
// document or per moment is soft.
func OutcomeFor(err error) document.Outcome {
	if err == nil {
		return document.OutcomeSuccess
	}
	if isHardError(err) {
		return document.OutcomeHardFailure
	}
	return document.OutcomeSoftFailure
}

func isHardError(err error) bool {
	var authErr *document.AuthError
	if errors.As(err, &authErr) {
		return true
	}

	var unavailErr *document.UnavailableError
	if errors.As(err, &unavailErr) {
		return true
	}

	var httpErr *document.HTTPError
	if errors.As(err, &httpErr) {
		// 401/403 mean bad credentials; other 4xx are document-specific
		if httpErr.StatusCode == 401 || httpErr.StatusCode == 403 {
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "invalid credentials") ||
		strings.Contains(errStr, "invalid client") ||
		strings.Contains(errStr, "missing credentials") ||
		strings.Contains(errStr, "executable file not found") {
		return true
	}

	return false
}

// isTransientError checks if an error is transient and worth one
// immediate in-strategy retry.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var httpErr *document.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= 500 && httpErr.StatusCode < 600 {
			return true
		}
		if httpErr.StatusCode == 429 {
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "eof") {
		return true
	}

	return false
}
