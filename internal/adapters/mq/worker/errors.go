package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrEmptySubmission = errors.New("empty submission")
)
