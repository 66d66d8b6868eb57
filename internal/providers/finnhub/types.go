package finnhub

// finnhubQuote is the /quote response. "c" is the current price; a zero
// price means Finnhub has no data for the symbol.
type finnhubQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePct     float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
}

// finnhubMetrics is the /stock/metric response, trimmed to the fields
// we read.
type finnhubMetrics struct {
	Metric struct {
		CurrentDividendYieldTTM float64 `json:"currentDividendYieldTTM"`
	} `json:"metric"`
}
