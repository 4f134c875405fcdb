package document

import "fmt"

// ValidationError represents a fatal input validation error. It is the
// only error a conversion surfaces to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// HTTPError represents an HTTP status error from an extraction backend.
type HTTPError struct {
	StatusCode int
	Body       string
	Service    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Service, e.Body)
}

// AuthError represents a credential or configuration error. Retrying
// with the same configuration cannot succeed.
type AuthError struct {
	Service string
	Reason  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s - %s", e.Service, e.Reason)
}

// UnavailableError represents a missing backing dependency, such as an
// absent OCR binary.
type UnavailableError struct {
	Service string
	Reason  string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Service, e.Reason)
}
