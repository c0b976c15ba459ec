package ir

import (
	"errors"
)

var (
	ErrParse      = errors.New("parse error")
	ErrBadFormat  = errors.New("bad format")
	// ErrIndexRange is returned for list indexes too far past the end of
	// a list to be filled with nulls.
	ErrIndexRange = errors.New("list index out of range")
)
