package index

import "errors"

var (
	// ErrNotFound is returned when a record is not found in the index.
	ErrNotFound = errors.New("record not found")

	// ErrWrite is returned when persisting records fails.
	ErrWrite = errors.New("index write failed")

	// ErrQuery is returned when a similarity query fails.
	ErrQuery = errors.New("index query failed")

	// ErrConnection is returned when the index backend connection fails.
	ErrConnection = errors.New("index connection failed")
)
