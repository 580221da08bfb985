package model

import "errors"

// Domain errors returned by the registry. They are normal Go errors, not
// exceptions: callers compare with errors.Is and map them to façade status
// codes.
var (
	ErrUnknownCharger    = errors.New("unknown charger")
	ErrInvalidConnector  = errors.New("invalid connector")
	ErrConnectorOccupied = errors.New("connector occupied")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidInput      = errors.New("invalid input")
)
