package domain

import "errors"

var (
	// ErrNotFound is returned by stores when a record targeted by a mutation does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrMissingID marks records that arrived without an identifier.
	ErrMissingID = errors.New("record has no id")
)
