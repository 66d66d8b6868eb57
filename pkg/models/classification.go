package models

// Classification is the descriptive bucket assigned to a holding, either
// by the AI classifier or by the deterministic keyword fallback.
type Classification struct {
	AssetClass string `json:"asset_class"` // "U.S. Equity", "Non-U.S. Equity", "Fixed Income", "Cash"
	Style      string `json:"style"`       // e.g. "Large-Growth", "Mid-Core"
	Sector     string `json:"sector"`      // e.g. "Technology", "Cash", "Unclassified"
	Country    string `json:"country"`
	LogoTicker string `json:"logo_ticker,omitempty"` // ticker to use for logo lookup
	StateCode  string `json:"state_code,omitempty"`  // two-letter state for municipal bonds
}
