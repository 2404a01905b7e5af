package models

import "errors"

// Общие ошибки, которые разделяют сервисы движка.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
)
