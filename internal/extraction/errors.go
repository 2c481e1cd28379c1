package extraction

import (
	"context"
	"errors"
	"fmt"
	"net"

	"convoy/internal/services"
	"convoy/internal/services/llm"
)

// ErrTimedOut reports that the provider call ran past its deadline.
var ErrTimedOut = fmt.Errorf("extraction timed out: %w", services.ErrTimeout)

// ConfigError reports an unusable prompt configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("extraction config: %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error { return services.ErrConfiguration }

// ProviderError reports a failed provider call. Status and Body are set
// when the provider answered with an HTTP error.
type ProviderError struct {
	Status  int
	Body    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	detail := e.Message
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("extraction failed: http %d: %s", e.Status, detail)
	}
	return "extraction failed: " + detail
}

func (e *ProviderError) Unwrap() []error {
	return []error{services.ErrExternal, e.Err}
}

func classifyProviderError(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w", ErrTimedOut, err)
	}
	var statusErr *llm.HTTPStatusError
	if errors.As(err, &statusErr) {
		return &ProviderError{
			Status:  statusErr.StatusCode,
			Body:    statusErr.Body,
			Message: statusErr.Message,
			Err:     err,
		}
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Message: apiErr.Message, Err: err}
	}
	return fmt.Errorf("extraction request failed: %w", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
