package stats

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithDefaultLimit sets the board length used when a caller passes limit <= 0.
func WithDefaultLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.defaultLimit = limit
		}
	}
}

// WithStrictScores makes Compute reject qualifying matches with negative scores.
func WithStrictScores(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// WithUnknownPlayerName sets the label shown for scorers without a display name.
func WithUnknownPlayerName(name string) Option {
	return func(e *Engine) {
		e.unknownPlayer = name
	}
}

// WithUnknownTeamName sets the label shown for teams without a display name.
func WithUnknownTeamName(name string) Option {
	return func(e *Engine) {
		e.unknownTeam = name
	}
}
