package services

import "errors"

// Failure taxonomy. Remote operations wrap their causes with one of these so
// callers can branch with errors.Is; nothing here is ever allowed to escape
// as a panic. ErrPartialWrite is never returned synchronously — a divergent
// dual write only becomes visible when both sides are re-queried — but the
// sentinel exists so detection code has a name for it.
var (
	ErrTransport    = errors.New("transport failure")
	ErrValidation   = errors.New("validation failure")
	ErrNotFound     = errors.New("not found")
	ErrPartialWrite = errors.New("partial write")
)
