package database

import "errors"

var (
	ErrNotFound       = errors.New("no booking matches the filter")
	ErrDuplicateEmail = errors.New("email is already used by an active booking")
	ErrDuplicateRoom  = errors.New("room number is already used by an active booking")
)
