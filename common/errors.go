package common

import "errors"

var (
	// ErrNotFound no devices matched the requested criteria
	ErrNotFound = errors.New(`device not found`)
	// ErrTimeout the operation did not complete within the allowed window
	ErrTimeout = errors.New(`operation timed out`)
	// ErrClosed the target has been closed and can no longer be used
	ErrClosed = errors.New(`target closed`)
	// ErrDisconnected the bulb has no live transport connection
	ErrDisconnected = errors.New(`not connected`)
	// ErrShortPayload the notification payload is too short to decode
	ErrShortPayload = errors.New(`payload too short`)
	// ErrUnknownCommand the notification carries an unrecognised command tag
	ErrUnknownCommand = errors.New(`unknown command tag`)
)
