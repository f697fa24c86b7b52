package auth

import "errors"

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidAdminCode   = errors.New("invalid admin code")
	ErrInvalidToken       = errors.New("invalid token")
)
