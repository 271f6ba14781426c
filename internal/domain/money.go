package domain

import (
	"fmt"
	"math"
)

// ToMinorUnits converts a float64 decimal amount (dollars) into int64 minor
// units (cents). It returns an error if the third decimal digit is
// non-zero; digits beyond the third are not checked and are rounded away
// (1.0004 yields 100). Uses math.Round after multiplying by 100 to handle
// floating-point representation issues.
//
// Prices flow through this conversion on the way in from the wire so that
// the matching engine and ledger only ever deal in exact integer minor
// units, satisfying I3/I4 (spec.md §8) without floating-point drift.
func ToMinorUnits(f float64) (int64, error) {
	// Multiply by 1000 to check for a third decimal place.
	scaled := math.Round(f * 1000)
	if math.Mod(scaled, 10) != 0 {
		return 0, fmt.Errorf("monetary values must have at most 2 decimal places")
	}

	return int64(math.Round(f * 100)), nil
}

// MinorUnitsToFloat converts an int64 minor-units value back to a float64
// decimal amount, for rendering in JSON responses.
func MinorUnitsToFloat(c int64) float64 {
	return float64(c) / 100.0
}

// ToWholeUnits converts a float64 quantity into an int64, rejecting any
// fractional remainder. Quantities on this exchange are whole shares.
func ToWholeUnits(f float64) (int64, error) {
	rounded := math.Round(f)
	if math.Abs(f-rounded) > 1e-9 {
		return 0, fmt.Errorf("quantity must be a whole number, got %v", f)
	}
	return int64(rounded), nil
}
