package wiki

import (
	"fmt"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// APIError is an error envelope returned by the Action API.
type APIError struct {
	Code string
	Info string

	transient bool
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("wiki api error %s: %s", e.Code, e.Info)
}

// Unwrap returns domain.ErrPlatformConflict for transient codes.
func (e *APIError) Unwrap() error {
	if e.transient {
		return domain.ErrPlatformConflict
	}
	return nil
}

// Transient reports whether the error may succeed on retry.
func (e *APIError) Transient() bool {
	return e.transient
}
