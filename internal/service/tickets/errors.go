package tickets

import "errors"

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrForbidden      = errors.New("ticket belongs to another user")
	ErrAlreadyPaid    = errors.New("ticket already paid")
)
