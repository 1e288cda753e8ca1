package domain

import "errors"

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrWeakSecret             = errors.New("password does not meet the minimum length")
	ErrIncorrectCurrentSecret = errors.New("current password is incorrect")
	ErrTokenInvalid           = errors.New("invalid token")
	ErrForbidden              = errors.New("access forbidden")
	ErrIdentityNotFound       = errors.New("identity not found")
	ErrIdentityExists         = errors.New("identity already exists")
	ErrInvalidRole            = errors.New("invalid role")
	ErrInvalidInput           = errors.New("invalid input")
	ErrSessionNotFound        = errors.New("session not found")
)
