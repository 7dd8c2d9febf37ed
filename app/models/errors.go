package models

import "errors"

var (
	// ErrNotFound is returned when a profile does not exist.
	ErrNotFound = errors.New("not found")
	// ErrLimitReached is returned by conditional increments that would pass
	// the limit, or that found no counter eligible for metering.
	ErrLimitReached = errors.New("usage counter at limit")
)
