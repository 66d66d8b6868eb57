package models

// Settings are the persisted user preferences applied when a request
// does not specify its own.
type Settings struct {
	Rounding  RoundingPolicy `json:"rounding"`
	Benchmark string         `json:"benchmark,omitempty"`

	// Active preview sort, advanced by header-click toggles.
	SortColumn    string `json:"sort_column,omitempty"`
	SortDirection string `json:"sort_direction,omitempty"` // "asc", "desc", or empty
}

// DefaultSettings returns the preferences used before any are saved.
func DefaultSettings() Settings {
	return Settings{Rounding: RoundNone}
}
