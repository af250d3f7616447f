package entity

import "errors"

var (
	ErrLeadNotFound         = errors.New("lead not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrVersionConflict is returned by versioned writes when the row changed
	// since it was read.
	ErrVersionConflict = errors.New("lead was modified concurrently")
)
