package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrOperation is matched by every *OperationError.
	ErrOperation = errors.New("storage operation failed")
	// ErrNotFound is returned by Get when no record has the id.
	ErrNotFound = errors.New("medicine not found")
)

// OperationError reports a failed add, list, get, delete or import
// transaction. Records committed earlier are unaffected.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s medicine: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func (e *OperationError) Is(target error) bool { return target == ErrOperation }

func opError(op string, err error) error {
	return &OperationError{Op: op, Err: err}
}
