package provider

// DataKind identifies a standard data shape a provider can fetch. Each
// kind maps to a concrete type in pkg/models.
type DataKind string

const (
	// KindQuote is a current price snapshot (→ *models.Quote).
	KindQuote DataKind = "Quote"
	// KindDividendYield is a trailing dividend yield figure (→ float64).
	KindDividendYield DataKind = "DividendYield"
	// KindDailySeries is a multi-year daily close series (→ *models.Series).
	KindDailySeries DataKind = "DailySeries"
)
