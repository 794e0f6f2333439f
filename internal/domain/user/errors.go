package user

import "errors"

var (
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrCompanyIDRequired = errors.New("company id is required")
	ErrUserIDRequired    = errors.New("user id is required")
)
