package catalog

import "errors"

var (
	ErrScreeningNotFound = errors.New("screening not found")
	ErrInvalidCapacity   = errors.New("capacity must be positive")
)
