package model

import "fmt"

// USD is the common currency every listing is normalized into.
const USD = "USD"

// MinorUnit describes a currency quoted in fractions of a major unit.
type MinorUnit struct {
	Major   string
	Divisor int64
}

// MinorUnits maps minor-unit quote codes to their major currency.
// GBp = pence, ILA = agorot, ZAc = cents.
var MinorUnits = map[string]MinorUnit{
	"GBp": {Major: "GBP", Divisor: 100},
	"ILA": {Major: "ILS", Divisor: 100},
	"ZAc": {Major: "ZAR", Divisor: 100},
}

// ResolveMinorUnit returns the major currency and divisor for a quote code.
// Codes missing from MinorUnits are taken as major-unit ISO codes.
func ResolveMinorUnit(code string) (major string, divisor int64) {
	if mu, ok := MinorUnits[code]; ok {
		return mu.Major, mu.Divisor
	}
	return code, 1
}

// FxPair returns the provider pair code quoting one unit of major in USD.
func FxPair(major string) string {
	return fmt.Sprintf("%sUSD=X", major)
}
