package tiingo

// tiingoBar is one element of the daily price response. AdjClose is
// preferred over Close when it is non-zero.
type tiingoBar struct {
	Date     string  `json:"date"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adjClose"`
}
