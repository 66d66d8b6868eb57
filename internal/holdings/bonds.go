package holdings

import (
	"regexp"
	"strconv"
	"strings"
)

// couponMaturityPattern matches fixed-income descriptions of the form
// "5.25% 03/15/2034" (coupon followed by a maturity date).
var couponMaturityPattern = regexp.MustCompile(`\d+\.?\d*%\s+\d{2}/\d{2}/\d{4}`)

// cusipPattern matches a 9-character alphanumeric CUSIP.
var cusipPattern = regexp.MustCompile(`^[0-9A-Z]{9}$`)

// couponPattern extracts the first percentage figure from a description.
var couponPattern = regexp.MustCompile(`(\d+\.?\d*)%`)

// bondKeywords appear (space-delimited) in Fidelity bond descriptions.
var bondKeywords = []string{" BDS ", " NOTE ", " CORP ", " MUNI "}

// IsBond reports whether a holding is fixed income: either its
// description carries a coupon-and-maturity pattern, or its symbol is a
// CUSIP and the description contains a bond keyword.
func IsBond(symbol, description string) bool {
	if description == "" {
		return false
	}
	if couponMaturityPattern.MatchString(description) {
		return true
	}
	if !cusipPattern.MatchString(symbol) {
		return false
	}
	for _, kw := range bondKeywords {
		if strings.Contains(description, kw) {
			return true
		}
	}
	return false
}

// IsCUSIP reports whether a symbol looks like a 9-character CUSIP.
func IsCUSIP(symbol string) bool {
	return cusipPattern.MatchString(symbol)
}

// CouponFromDescription extracts the coupon rate (as a percentage, e.g.
// 5.25) from a bond description, or 0 if none is present.
func CouponFromDescription(description string) float64 {
	m := couponPattern.FindStringSubmatch(description)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}
