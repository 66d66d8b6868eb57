package holdings

import "strings"

// bondIssuers maps issuer name fragments (as they appear upper-cased in
// Fidelity bond descriptions) to the issuer's listed ticker, used for
// logo lookup on CUSIP-keyed holdings.
var bondIssuers = map[string]string{
	"WELLS FARGO": "WFC", "JPMORGAN": "JPM", "J P MORGAN": "JPM", "BANK OF AMERICA": "BAC",
	"GOLDMAN SACHS": "GS", "GOLDMAN": "GS", "MORGAN STANLEY": "MS", "CITIGROUP": "C",
	"CITI": "C", "BLACKROCK": "BLK", "BERKSHIRE": "BRK.B", "CHARLES SCHWAB": "SCHW",
	"AMERICAN EXPRESS": "AXP", "VISA": "V", "MASTERCARD": "MA", "CAPITAL ONE": "COF",
	"US BANCORP": "USB", "PNC": "PNC", "TRUIST": "TFC", "HSBC": "HSBC", "BARCLAYS": "BCS",
	"UBS": "UBS", "DEUTSCHE BANK": "DB", "ROYAL BANK OF CANADA": "RY", "TORONTO DOMINION": "TD",
	"APPLE": "AAPL", "MICROSOFT": "MSFT", "AMAZON": "AMZN", "ALPHABET": "GOOGL",
	"GOOGLE": "GOOGL", "META": "META", "FACEBOOK": "META", "NVIDIA": "NVDA",
	"INTEL": "INTC", "AMD": "AMD", "ADVANCED MICRO": "AMD", "MICROCHIP": "MCHP",
	"BROADCOM": "AVGO", "QUALCOMM": "QCOM", "TEXAS INSTRUMENTS": "TXN", "ORACLE": "ORCL",
	"IBM": "IBM", "CISCO": "CSCO", "SALESFORCE": "CRM", "ADOBE": "ADBE", "INTUIT": "INTU",
	"PAYPAL": "PYPL", "SERVICENOW": "NOW", "NETFLIX": "NFLX", "TAKE-TWO": "TTWO",
	"LEIDOS": "LDOS", "BOOZ ALLEN": "BAH", "UBER": "UBER", "AT&T": "T", "VERIZON": "VZ",
	"T-MOBILE": "TMUS", "COMCAST": "CMCSA", "CHARTER": "CHTR", "DISNEY": "DIS",
	"WARNER BROS": "WBD", "PARAMOUNT": "PARA", "UNITEDHEALTH": "UNH", "CVS": "CVS",
	"ELEVANCE": "ELV", "ANTHEM": "ELV", "CIGNA": "CI", "PFIZER": "PFE",
	"JOHNSON & JOHNSON": "JNJ", "JOHNSON": "JNJ", "ABBVIE": "ABBV", "MERCK": "MRK",
	"BRISTOL-MYERS": "BMY", "BRISTOL MYERS": "BMY", "AMGEN": "AMGN", "GILEAD": "GILD",
	"ELI LILLY": "LLY", "LILLY": "LLY", "THERMO FISHER": "TMO", "DANAHER": "DHR",
	"ABBOTT": "ABT", "STRYKER": "SYK", "MEDTRONIC": "MDT", "BECTON DICKINSON": "BDX",
	"BOSTON SCIENTIFIC": "BSX", "WALMART": "WMT", "COSTCO": "COST", "TARGET": "TGT",
	"HOME DEPOT": "HD", "LOWE'S": "LOW", "MCDONALD": "MCD", "STARBUCKS": "SBUX",
	"NIKE": "NKE", "PROCTER & GAMBLE": "PG", "P&G": "PG", "PEPSICO": "PEP",
	"COCA-COLA": "KO", "PHILIP MORRIS": "PM", "ALTRIA": "MO", "COLGATE": "CL",
	"ESTEE LAUDER": "EL", "GENERAL MOTORS": "GM", "GM ": "GM", "FORD": "F",
	"TESLA": "TSLA", "TOYOTA": "TM", "HONDA": "HMC", "BOEING": "BA", "LOCKHEED": "LMT",
	"RAYTHEON": "RTX", "NORTHROP": "NOC", "GENERAL DYNAMICS": "GD", "L3HARRIS": "LHX",
	"HONEYWELL": "HON", "GENERAL ELECTRIC": "GE", "CATERPILLAR": "CAT", "DEERE": "DE",
	"3M": "MMM", "UPS": "UPS", "UNITED PARCEL": "UPS", "FEDEX": "FDX", "UNION PACIFIC": "UNP",
	"CSX": "CSX", "EXXON": "XOM", "CHEVRON": "CVX", "CONOCOPHILLIPS": "COP",
	"SCHLUMBERGER": "SLB", "EOG": "EOG", "MARATHON": "MPC", "PHILLIPS 66": "PSX",
	"VALERO": "VLO", "OCCIDENTAL": "OXY", "KINDER MORGAN": "KMI", "WILLIAMS COS": "WMB",
	"ENTERPRISE PRODUCTS": "EPD", "ENERGY TRANSFER": "ET", "NEXTERA": "NEE",
	"DUKE ENERGY": "DUK", "SOUTHERN CO": "SO", "DOMINION": "D", "EXELON": "EXC",
	"AMERICAN ELECTRIC": "AEP", "SEMPRA": "SRE", "PACIFIC GAS": "PCG", "CONSOLIDATED EDISON": "ED",
	"PUBLIC SERVICE": "PEG", "TREASURY": "GOVT", "UNITED STATES TREAS": "GOVT",
	"US TREASURY": "GOVT", "FANNIE MAE": "FNMA", "FREDDIE MAC": "FMCC",
}

// IssuerLogoTicker resolves the listed ticker of a bond's issuer from
// its description, for logo display. Returns "" when no issuer matches.
// Only applies to CUSIP-keyed holdings; exchange-listed symbols are
// their own logo ticker.
func IssuerLogoTicker(symbol, description string) string {
	if !IsCUSIP(symbol) || description == "" {
		return ""
	}
	upper := strings.ToUpper(description)
	for name, ticker := range bondIssuers {
		if strings.Contains(upper, name) {
			return ticker
		}
	}
	return ""
}
