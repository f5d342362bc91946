package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidStyle       = errors.New("invalid style configuration")
	ErrPresetNotFound     = errors.New("preset not found")
	ErrBatchTooLarge      = errors.New("too many products in batch")
	ErrEmptyBatch         = errors.New("batch requires at least one product")
	ErrInvalidTransition  = errors.New("illegal status transition")
	ErrJobNotCancellable  = errors.New("job can no longer be cancelled")
	ErrDuplicateOperation = errors.New("duplicate operation")
)

// InsufficientCreditsError reports a credit shortfall together with the
// amounts involved so the API can surface them to the client.
type InsufficientCreditsError struct {
	Needed    int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Needed, e.Available)
}

// IsInsufficientCredits reports whether err is a credit shortfall.
func IsInsufficientCredits(err error) bool {
	var ice *InsufficientCreditsError
	return errors.As(err, &ice)
}
