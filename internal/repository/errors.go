package repository

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrNotReserved = errors.New("ticket is not in reserved state")
	ErrEmailTaken  = errors.New("email already registered")
)
