package domain

import "errors"

// Sentinel errors matched with errors.Is at the API boundary.
var (
	// ErrInvalidArgument marks malformed caller input: generation
	// parameters, status values, filters, submitted transactions.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks an unknown transaction id.
	ErrNotFound = errors.New("not found")

	// ErrConfiguration marks malformed catalog or service
	// configuration. Fatal at startup; the service must not serve
	// partially-initialized state.
	ErrConfiguration = errors.New("configuration error")
)
