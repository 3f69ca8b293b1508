package entities

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Analysis errors
	ErrNoData = errors.New("no data to analyze")

	// Snapshot errors
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	ErrInvalidSnapshot   = errors.New("invalid snapshot name")
)

// SnapshotRestoreError reports a snapshot that decoded but could not be
// loaded into its meeting.
type SnapshotRestoreError struct {
	Key MeetingKey
	Err error
}

func (e *SnapshotRestoreError) Error() string {
	return fmt.Sprintf("restore snapshot %s: %v", e.Key, e.Err)
}

func (e *SnapshotRestoreError) Unwrap() []error {
	return []error{ErrMalformedSnapshot, e.Err}
}
