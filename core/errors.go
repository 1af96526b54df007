package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSchedulerClosed is delivered through a JobHandle when the job was
	// submitted after the scheduler began shutting down.
	ErrSchedulerClosed = errors.New("scheduler is closed")

	// ErrHandleConsumed is returned by a second call to JobHandle.Wait.
	ErrHandleConsumed = errors.New("job handle already waited on")

	// ErrUnknownCategory marks a submission to a category that was not configured.
	ErrUnknownCategory = errors.New("unknown thread category")

	// ErrInvalidDescriptor marks a malformed category descriptor set.
	ErrInvalidDescriptor = errors.New("invalid thread category descriptor")

	// ErrJobSkipped is delivered when an interceptor returned without running the
	// job to completion.
	ErrJobSkipped = errors.New("job skipped by interceptor")

	// ErrJobAlreadyRun is returned by a job's run function on every call after
	// the first, or after the job was resolved. The body is not invoked again.
	ErrJobAlreadyRun = errors.New("job already run")
)

// PanicError is the failure delivered for a job whose body panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}

// Unwrap exposes the panic value when the job panicked with an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
