package stats

import "errors"

// Sentinel kinds for aggregation errors.
var (
	ErrNegativeScore = errors.New("negative score")
)
