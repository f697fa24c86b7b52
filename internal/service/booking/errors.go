package booking

import "errors"

var (
	ErrScreeningNotFound = errors.New("screening not found")
	ErrSeatOutOfRange    = errors.New("seat number out of range")
	ErrSeatAlreadyBooked = errors.New("seat already booked")
	ErrRateLimited       = errors.New("rate limited")
)
