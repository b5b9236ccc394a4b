package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrInvalidRecord     = errors.New("invalid record")
	ErrMissingDSN        = errors.New("missing data source name")
)
