package spi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/canonical/microspi/spi/types"
)

var (
	// ErrFrameClosed is returned when a Client is used after its frame was closed.
	ErrFrameClosed = errors.New("SPI frame is closed")

	// ErrFrameOrder is returned when frames are not closed in the reverse order of opening.
	ErrFrameOrder = errors.New("SPI frames must be closed in reverse order of opening")

	// ErrResultSetInvalidated is returned when a result set is read after its frame was closed.
	ErrResultSetInvalidated = errors.New("Result set used after its frame was closed")

	// errGoexit marks a frame left through runtime.Goexit.
	errGoexit = errors.New("Goroutine exited inside SPI frame")
)

// StatementError is returned when the engine rejects a statement or its arguments.
// Message holds the engine's message verbatim.
type StatementError struct {
	Query   string
	Message string
	Err     error
}

func newStatementError(query string, err error) *StatementError {
	return &StatementError{Query: query, Message: err.Error(), Err: err}
}

// Error implements the error interface.
func (e *StatementError) Error() string {
	return e.Message
}

// Unwrap returns the engine error.
func (e *StatementError) Unwrap() error {
	return e.Err
}

// IsSyntaxError returns whether err is a StatementError caused by malformed SQL.
func IsSyntaxError(err error) bool {
	var stmtErr *StatementError
	if !errors.As(err, &stmtErr) {
		return false
	}

	return strings.Contains(strings.ToLower(stmtErr.Message), "syntax error")
}

// DecodeError is returned when a column can't be decoded into the requested type.
// It only affects the access that produced it.
type DecodeError struct {
	Column int
	Oid    types.Oid
	Target string
	Reason string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("Failed to decode column %d (%s) as %s: %s", e.Column, e.Oid, e.Target, e.Reason)
}

func newDecodeError[T any](column int, oid types.Oid, reason string) *DecodeError {
	return &DecodeError{
		Column: column,
		Oid:    oid,
		Target: reflect.TypeFor[T]().String(),
		Reason: reason,
	}
}

// HostAbort is a panic raised by caller supplied code inside a frame. It is recovered at the
// outermost frame and returned from Execute or Connect like any other error.
type HostAbort struct {
	Message string
	Value   any
	Stack   []byte
}

// Error implements the error interface.
func (e *HostAbort) Error() string {
	return e.Message
}

// Unwrap returns the panic value if it was an error.
func (e *HostAbort) Unwrap() error {
	err, ok := e.Value.(error)
	if !ok {
		return nil
	}

	return err
}
