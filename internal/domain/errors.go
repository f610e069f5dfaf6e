package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPeerOffline means the target participant has no live connection.
	ErrPeerOffline      = errors.New("peer offline")
	ErrInvalidCallState = errors.New("invalid call state")
	ErrInvalidCallType  = errors.New("invalid call type")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrNotFound         = errors.New("not found")
	ErrNoActiveGame     = errors.New("no active game")
	ErrInvalidInput     = errors.New("invalid input")

	// Transport failures. Never surfaced as operation failures.
	ErrTransportFailure = errors.New("transport failure")
	ErrConnClosed       = fmt.Errorf("%w: connection closed", ErrTransportFailure)
	ErrBackpressure     = fmt.Errorf("%w: backpressure", ErrTransportFailure)
)
