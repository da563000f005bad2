package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrPathConflict  = errors.New("wrong node kind")
	ErrExists        = errors.New("already exists")
	ErrQuery         = errors.New("invalid query")
	ErrUpdate        = errors.New("invalid update spec")
	ErrMismatch      = errors.New("type mismatch")
	ErrProtected     = errors.New("root collection cannot be dropped")
	ErrSerialize     = errors.New("serialization error")
	ErrName          = errors.New("invalid document name")
	ErrNoHistory     = errors.New("repository has no history")
	ErrCursorEmpty   = errors.New("cursor is empty")
	ErrCursorDrained = errors.New("cursor is exhausted")
)

// ErrPathKind is returned when a path is classified as the wrong kind for the
// requested operation.
type ErrPathKind struct {
	Path string
	Want NodeKind
	Got  NodeKind
}

func (e ErrPathKind) Error() string {
	return fmt.Sprintf("wrong node kind at %q: expected %s, found %s", e.Path, e.Want, e.Got)
}

func (e ErrPathKind) Is(target error) bool { return target == ErrPathConflict }

// ErrAlreadyExists is returned by inserts when any target name is taken. No
// document is created when it is returned.
type ErrAlreadyExists struct {
	Names []string
}

func (e ErrAlreadyExists) Error() string {
	return fmt.Sprintf("already exists: %s", strings.Join(e.Names, ", "))
}

func (e ErrAlreadyExists) Is(target error) bool { return target == ErrExists }

// ErrMissing is returned when a referenced document or collection is absent.
type ErrMissing struct {
	Path string
}

func (e ErrMissing) Error() string {
	return fmt.Sprintf("not found: %q", e.Path)
}

func (e ErrMissing) Is(target error) bool { return target == ErrNotFound }

// ErrInvalidQuery reports a malformed query operand.
type ErrInvalidQuery struct {
	Op     string
	Reason string
}

func (e ErrInvalidQuery) Error() string {
	return fmt.Sprintf("invalid query: %s %s", e.Op, e.Reason)
}

func (e ErrInvalidQuery) Is(target error) bool { return target == ErrQuery }

// ErrInvalidUpdate reports a malformed update operand.
type ErrInvalidUpdate struct {
	Op     string
	Reason string
}

func (e ErrInvalidUpdate) Error() string {
	return fmt.Sprintf("invalid update spec: %s %s", e.Op, e.Reason)
}

func (e ErrInvalidUpdate) Is(target error) bool { return target == ErrUpdate }

// ErrTypeMismatch is returned when an operator is applied to a field holding an
// incompatible value, such as $push on a non-array.
type ErrTypeMismatch struct {
	Op    string
	Field string
	Got   Kind
}

func (e ErrTypeMismatch) Error() string {
	return fmt.Sprintf("%s on %q: incompatible %s value", e.Op, e.Field, e.Got)
}

func (e ErrTypeMismatch) Is(target error) bool { return target == ErrMismatch }

// ErrRootProtected is returned when dropping the root collection.
type ErrRootProtected struct{}

func (e ErrRootProtected) Error() string { return ErrProtected.Error() }

func (e ErrRootProtected) Is(target error) bool { return target == ErrProtected }

// ErrSerialization wraps encoding and decoding failures of a document.
type ErrSerialization struct {
	Path string
	Err  error
}

func (e ErrSerialization) Error() string {
	return fmt.Sprintf("serialization of %q: %v", e.Path, e.Err)
}

func (e ErrSerialization) Unwrap() error { return e.Err }

func (e ErrSerialization) Is(target error) bool { return target == ErrSerialize }

// ErrInvalidName is returned when inserting a document under a name that
// cannot be stored.
type ErrInvalidName struct {
	Name string
}

func (e ErrInvalidName) Error() string {
	return fmt.Sprintf("invalid document name %q", e.Name)
}

func (e ErrInvalidName) Is(target error) bool { return target == ErrName }
