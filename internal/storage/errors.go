package storage

import (
	"fmt"

	"github.com/rohmanhakim/domain-crawler/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCauseWriteFailure StorageErrorCause = "write failed"
)

type StorageError struct {
	Message string
	Cause   StorageErrorCause
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %s", e.Cause, e.Message)
}

func (e *StorageError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}
