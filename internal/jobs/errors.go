package jobs

import (
	"errors"
	"fmt"
)

// Sentinel errors for job outcomes.
// These can be checked with errors.Is().
var (
	ErrRemuxFailed  = errors.New("remux failed")
	ErrEncodeFailed = errors.New("encode failed")
	ErrOutputExists = errors.New("output already exists")
	ErrInterrupted  = errors.New("interrupted before dispatch")
	ErrJobPanicked  = errors.New("job panicked")
)

func remuxError(err error) error {
	return fmt.Errorf("%w: %w", ErrRemuxFailed, err)
}

func encodeError(err error) error {
	return fmt.Errorf("%w: %w", ErrEncodeFailed, err)
}

func outputExistsError(path string) error {
	return fmt.Errorf("%w: %s", ErrOutputExists, path)
}
