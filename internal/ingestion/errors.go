package ingestion

import (
	"errors"
	"fmt"
)

// ErrAmbiguousRecord marks an observation skipped because the archive holds
// more than one record for its URI.
var ErrAmbiguousRecord = errors.New("ingestion: several archive records share the observation uri")

// InputError aborts a single observation: a file, directory or key it needs
// is missing or unreadable.
type InputError struct {
	ObservationDir string
	Err            error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("ingestion: %s: %v", e.ObservationDir, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// StorageError is a failure to persist a serialized document.
type StorageError struct {
	Target string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ingestion: store %s: %v", e.Target, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
