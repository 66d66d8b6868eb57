package classify

import (
	"strings"

	"github.com/folioworks/folio/internal/holdings"
	"github.com/folioworks/folio/pkg/models"
)

// stateCodes maps state names appearing in municipal bond descriptions
// to their postal codes.
var stateCodes = map[string]string{
	"ALABAMA": "AL", "ALASKA": "AK", "ARIZONA": "AZ", "ARKANSAS": "AR",
	"CALIFORNIA": "CA", "COLORADO": "CO", "CONNECTICUT": "CT", "DELAWARE": "DE",
	"FLORIDA": "FL", "GEORGIA": "GA", "HAWAII": "HI", "IDAHO": "ID",
	"ILLINOIS": "IL", "INDIANA": "IN", "IOWA": "IA", "KANSAS": "KS",
	"KENTUCKY": "KY", "LOUISIANA": "LA", "MAINE": "ME", "MARYLAND": "MD",
	"MASSACHUSETTS": "MA", "MICHIGAN": "MI", "MINNESOTA": "MN", "MISSISSIPPI": "MS",
	"MISSOURI": "MO", "MONTANA": "MT", "NEBRASKA": "NE", "NEVADA": "NV",
	"NEW HAMPSHIRE": "NH", "NEW JERSEY": "NJ", "NEW MEXICO": "NM", "NEW YORK": "NY",
	"NORTH CAROLINA": "NC", "NORTH DAKOTA": "ND", "OHIO": "OH", "OKLAHOMA": "OK",
	"OREGON": "OR", "PENNSYLVANIA": "PA", "RHODE ISLAND": "RI", "SOUTH CAROLINA": "SC",
	"SOUTH DAKOTA": "SD", "TENNESSEE": "TN", "TEXAS": "TX", "UTAH": "UT",
	"VERMONT": "VT", "VIRGINIA": "VA", "WASHINGTON": "WA", "WEST VIRGINIA": "WV",
	"WISCONSIN": "WI", "WYOMING": "WY",
}

// Heuristic derives a classification from the symbol and description
// alone. It is the fallback when the AI classifier is unavailable or
// returns nothing usable for a symbol, and its output is deliberately
// coarse.
func Heuristic(symbol, description string) models.Classification {
	desc := strings.ToUpper(description)

	c := models.Classification{
		AssetClass: "U.S. Equity",
		Style:      "Mid-Core",
		Sector:     "Unclassified",
		Country:    "United States",
		LogoTicker: holdings.CleanSymbol(symbol),
	}

	switch {
	case holdings.IsCashPosition(symbol, description):
		c.AssetClass = "Cash"
		c.Style = "N/A"
		c.Sector = "Cash"
		c.LogoTicker = ""
		return c
	case holdings.IsBond(symbol, description):
		c.AssetClass = "Fixed Income"
		c.Style = "N/A"
		c.Sector = "Fixed Income"
		if t := holdings.IssuerLogoTicker(symbol, description); t != "" {
			c.LogoTicker = t
		}
		if strings.Contains(desc, "MUNI") {
			for name, code := range stateCodes {
				if strings.Contains(desc, name) {
					c.StateCode = code
					break
				}
			}
		}
		return c
	}

	if holdings.IsCoveredCall(symbol, description) {
		c.Style = "Option Income"
	}

	if strings.Contains(desc, "INTL") || strings.Contains(desc, "INTERNATIONAL") ||
		strings.Contains(desc, "EMERGING") {
		c.AssetClass = "Non-U.S. Equity"
		c.Country = "International"
	}

	switch {
	case strings.Contains(desc, "TECH") || strings.Contains(desc, "SOFTWARE") ||
		strings.Contains(desc, "SEMICONDUCTOR"):
		c.Sector = "Technology"
	case strings.Contains(desc, "HEALTH") || strings.Contains(desc, "PHARM") ||
		strings.Contains(desc, "BIO"):
		c.Sector = "Healthcare"
	case strings.Contains(desc, "BANK") || strings.Contains(desc, "FINANCIAL") ||
		strings.Contains(desc, "FIN SVCS"):
		c.Sector = "Financial Services"
	case strings.Contains(desc, "UTIL") || strings.Contains(desc, "ELECTRIC PWR") ||
		strings.Contains(desc, "POWER"):
		c.Sector = "Utilities"
	case strings.Contains(desc, "ENERGY") || strings.Contains(desc, "OIL") ||
		strings.Contains(desc, "GAS"):
		c.Sector = "Energy"
	case strings.Contains(desc, "REAL ESTATE") || strings.Contains(desc, "REIT"):
		c.Sector = "Real Estate"
	}

	return c
}
