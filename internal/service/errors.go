package service

import "errors"

var (
	ErrSessionNotFound = errors.New("game session not found")
	// ErrForbidden - сессия принадлежит другому игроку.
	ErrForbidden = errors.New("game session belongs to another player")
)
