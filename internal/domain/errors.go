package domain

import "errors"

var (
	// ErrBankNotFound indicates no question bank exists for a subject.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrSessionNotFound is returned when a session ID is not registered with the host.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidLevel is returned when a selection names an unknown difficulty tier.
	ErrInvalidLevel = errors.New("invalid difficulty level")
	// ErrUnknownBulkAction indicates an unsupported bulk status action.
	ErrUnknownBulkAction = errors.New("unknown bulk action")
)
