package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/local/docconvert/internal/document"
)

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want document.Outcome
	}{
		{name: "nil", err: nil, want: document.OutcomeSuccess},
		{
			name: "auth error is hard",
			err:  &document.AuthError{Service: "cloud_api", Reason: "invalid credentials"},
			want: document.OutcomeHardFailure,
		},
		{
			name: "wrapped auth error is hard",
			err:  fmt.Errorf("extract: %w", &document.AuthError{Service: "cloud_api", Reason: "bad secret"}),
			want: document.OutcomeHardFailure,
		},
		{
			name: "unavailable dependency is hard",
			err:  &document.UnavailableError{Service: "ocr", Reason: "tesseract not found in PATH"},
			want: document.OutcomeHardFailure,
		},
		{
			name: "http 401 is hard",
			err:  &document.HTTPError{StatusCode: 401, Service: "cloud_api"},
			want: document.OutcomeHardFailure,
		},
		{
			name: "http 403 is hard",
			err:  &document.HTTPError{StatusCode: 403, Service: "cloud_api"},
			want: document.OutcomeHardFailure,
		},
		{
			name: "http 500 is soft",
			err:  &document.HTTPError{StatusCode: 500, Service: "cloud_api"},
			want: document.OutcomeSoftFailure,
		},
		{
			name: "http 422 is soft",
			err:  &document.HTTPError{StatusCode: 422, Service: "cloud_api"},
			want: document.OutcomeSoftFailure,
		},
		{
			name: "missing binary is hard",
			err:  errors.New(`exec: "tesseract": executable file not found in $PATH`),
			want: document.OutcomeHardFailure,
		},
		{
			name: "no content is soft",
			err:  fmt.Errorf("document carries no embedded text: %w", ErrNoContent),
			want: document.OutcomeSoftFailure,
		},
		{
			name: "generic parse error is soft",
			err:  errors.New("content stream parse failed"),
			want: document.OutcomeSoftFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutcomeFor(tt.err); got != tt.want {
				t.Errorf("OutcomeFor(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "http 503", err: &document.HTTPError{StatusCode: 503}, want: true},
		{name: "http 429", err: &document.HTTPError{StatusCode: 429}, want: true},
		{name: "http 400", err: &document.HTTPError{StatusCode: 400}, want: false},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: true},
		{name: "plain failure", err: errors.New("malformed token response"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransientError(tt.err); got != tt.want {
				t.Errorf("isTransientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
