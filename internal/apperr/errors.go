// Package apperr holds sentinel errors shared across service layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNoPending     = errors.New("no pending pattern")
	ErrInvalidInput  = errors.New("invalid input")
)
