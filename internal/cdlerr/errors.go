// Package cdlerr defines the error taxonomy shared by every CDL subsystem.
package cdlerr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Callers compare with errors.Is, never string-match.
var (
	// ErrNotFound is the cache-miss signal used internally by the cached
	// object store. It is not an error to the end user.
	ErrNotFound = errors.New("not found")
	// ErrEmptyStorage is returned by OpenTable when the location holds no
	// rootfs table.
	ErrEmptyStorage = errors.New("empty storage")
	// ErrOverflow marks a 64-bit accumulator overflow while batching.
	ErrOverflow = errors.New("file too large")
	// ErrUnsupported marks an operation invoked against a scheme that does
	// not support it.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrCancelled marks a task-join failure or user cancellation.
	ErrCancelled = errors.New("cancelled")
	// ErrAlreadyExists is returned by a conditional Put (IfNoneMatch: "*")
	// when the target path already has an object, signalling a lost
	// compare-and-swap race rather than a generic backend failure.
	ErrAlreadyExists = errors.New("already exists")
)

// ConfigError wraps a malformed GlobalPath, unknown scheme, or missing
// required catalog field.
type ConfigError struct {
	Msg   string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("config error: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("config error: %s", e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// NewConfigError builds a ConfigError, optionally wrapping a cause.
func NewConfigError(msg string, cause error) error {
	return &ConfigError{Msg: msg, Cause: cause}
}

// IoError wraps a local filesystem I/O failure.
type IoError struct {
	Path  string
	Cause error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error on %q: %v", e.Path, e.Cause)
}

func (e *IoError) Unwrap() error { return e.Cause }

// NewIoError wraps err with the path that produced it. Returns nil if err
// is nil, so it composes at call sites as `return cdlerr.NewIoError(p, err)`.
func NewIoError(path string, err error) error {
	if err == nil {
		return nil
	}
	return &IoError{Path: path, Cause: err}
}

// BackendError wraps a remote object-store error other than NotFound.
type BackendError struct {
	Store string
	Cause error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error (%s): %v", e.Store, e.Cause)
}

func (e *BackendError) Unwrap() error { return e.Cause }

// NewBackendError wraps err as a BackendError attributed to store. Returns
// nil if err is nil.
func NewBackendError(store string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Store: store, Cause: err}
}

// SchemaError marks a record batch missing an expected column, or one with
// the wrong column type.
type SchemaError struct {
	Column string
	Msg    string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error on column %q: %s", e.Column, e.Msg)
}

// NewSchemaError builds a SchemaError.
func NewSchemaError(column, msg string) error {
	return &SchemaError{Column: column, Msg: msg}
}
