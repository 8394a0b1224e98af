package cli

import (
	"errors"
	"fmt"

	"medshelf/m/domain"
	"medshelf/m/internal/config"
	"medshelf/m/internal/database"
	"medshelf/m/internal/export"
	"medshelf/m/internal/repository"
	"medshelf/m/internal/seed"
)

const (
	ExitCodeSuccess     = 0
	ExitCodeGeneric     = 1
	ExitCodeValidation  = 2
	ExitCodeUnavailable = 3
	ExitCodeOperation   = 4
	ExitCodeUsage       = 5
	ExitCodeNotFound    = 6
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func asExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

func mapCommandError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrValidation), errors.Is(err, seed.ErrMalformedCSV):
		return asExitError(ExitCodeValidation, err)
	case errors.Is(err, database.ErrUnavailable):
		return asExitError(ExitCodeUnavailable, err)
	case errors.Is(err, repository.ErrOperation):
		return asExitError(ExitCodeOperation, err)
	case errors.Is(err, repository.ErrNotFound):
		return asExitError(ExitCodeNotFound, err)
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, export.ErrUnknownFormat):
		return asExitError(ExitCodeUsage, err)
	}
	return asExitError(ExitCodeGeneric, err)
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{
		Code: ExitCodeUsage,
		Err:  fmt.Errorf(format, args...),
	}
}

// exitCode extracts the process exit code for err.
func exitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return withExit.ExitCode()
	}
	return ExitCodeGeneric
}
