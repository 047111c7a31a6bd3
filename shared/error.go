package shared

import (
	"fmt"
)

// ClientError is a custom error that we will use in our API responses
type ClientError struct {
	status  int
	message string
}

// Error - implementing this on ClientError makes it compatible for places where want to return errors
func (err *ClientError) Error() string {
	return fmt.Sprintf("client error: %s", err.message)
}

// Status - the HTTP status code this error maps to
func (err *ClientError) Status() int {
	return err.status
}

// Message - the user-facing message, without the "client error" prefix
func (err *ClientError) Message() string {
	return err.message
}

// NewClientError - use this to return client errors from your service
func NewClientError(status int, message string) *ClientError {
	return &ClientError{
		status:  status,
		message: message,
	}
}

// Sentinel errors returned by the services. Controllers compare with
// errors.As/Is and translate to the standard response.
var (
	ErrRoomNotFound      = NewClientError(StatusNotFound, "room not found")
	ErrRoomFull          = NewClientError(StatusConflict, "room is full")
	ErrInvalidSignal     = NewClientError(StatusBadRequest, "signal requires a type and a sender")
	ErrMissingUserId     = NewClientError(StatusBadRequest, "missing userId")
	ErrCodesExhausted    = NewClientError(StatusInternalServerError, "could not allocate a unique room code")
	ErrUnknownSignalType = NewClientError(StatusBadRequest, "unknown signal type")
)
