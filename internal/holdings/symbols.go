// Package holdings contains symbol-level helpers shared by the quote,
// history, rebalance, and classification layers: symbol normalization,
// cash and covered-call ticker detection, fixed-income detection, and
// bond issuer logo resolution.
package holdings

import "strings"

// cashTickers are sweep and money-market instruments. These never trade
// on an exchange and always price at 1.00.
var cashTickers = []string{"FDRXX", "FCASH", "SPAXX", "CASH", "MMDA", "USD", "CORE", "FZFXX", "SWVXX"}

// coveredCallTickers are option-income ETFs whose distributions are not
// comparable to plain dividend yield.
var coveredCallTickers = map[string]bool{
	"JEPI": true, "JEPQ": true, "QYLD": true, "XYLD": true, "RYLD": true,
	"DIVO": true, "GPIX": true, "GPIQ": true, "SPYI": true, "ISPY": true,
	"FEPI": true, "SVOL": true,
}

// CleanSymbol normalizes a raw symbol for use as a lookup key: upper-case,
// with "." and "/" (class-share and preferred notation) replaced by "-".
func CleanSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}

// IsCashSymbol reports whether the symbol is a sweep or money-market
// instrument. Matching is by substring so account-suffixed variants
// (e.g. "SPAXX**") still count.
func IsCashSymbol(symbol string) bool {
	u := strings.ToUpper(symbol)
	for _, t := range cashTickers {
		if strings.Contains(u, t) {
			return true
		}
	}
	return false
}

// IsCashPosition reports whether the symbol or description marks a
// holding as cash.
func IsCashPosition(symbol, description string) bool {
	if IsCashSymbol(symbol) {
		return true
	}
	return strings.Contains(strings.ToUpper(description), "CASH")
}

// IsCoveredCall reports whether a holding is an option-income fund,
// either by ticker or by description keywords.
func IsCoveredCall(symbol, description string) bool {
	if coveredCallTickers[strings.ToUpper(symbol)] {
		return true
	}
	d := strings.ToUpper(description)
	return strings.Contains(d, "COVERED CALL") ||
		strings.Contains(d, "BUYWRITE") ||
		strings.Contains(d, "OPTION INCOME")
}
