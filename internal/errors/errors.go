package errors

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotFound is returned when a requested resource doesn't exist
var ErrNotFound = errors.New("resource not found")

// ErrInvalidInput is returned when the provided input is invalid
var ErrInvalidInput = errors.New("invalid input")

// ErrPersistence is returned when a write to the backing state store fails
var ErrPersistence = errors.New("persistence failure")

// ErrInternal is returned for unexpected internal errors
var ErrInternal = errors.New("internal error")

// LogErrorAndReturn logs an error with structured context and returns it
func LogErrorAndReturn(logger *slog.Logger, err error, message string, args ...any) error {
	// Don't modify nil errors
	if err == nil {
		return nil
	}

	// Log the error with the provided context
	logger.Error(message, append([]any{"error", err}, args...)...)
	return err
}

// IsNotFound returns true if the error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput returns true if the error is or wraps ErrInvalidInput
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsPersistence returns true if the error is or wraps ErrPersistence
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// NotFoundf returns a formatted ErrNotFound error
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// InvalidInputf returns a formatted ErrInvalidInput error
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...)
}

// Persistencef returns a formatted ErrPersistence error
func Persistencef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrPersistence)...)
}

// Internalf returns a formatted ErrInternal error
func Internalf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInternal)...)
}
