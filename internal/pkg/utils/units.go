package utils

import (
	"fmt"
	"math/big"
	"os"

	"github.com/shopspring/decimal"
)

// FormatUnits converts an amount in base units to a human-readable string,
// considering the given number of decimals.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// ToBaseUnits converts a native-currency amount to base units. Amounts with
// more fractional digits than decimals cannot be represented and are rejected.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	shifted := amount.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}
	return shifted.BigInt(), nil
}

// GetEnv returns the value of the environment variable key or fallback when unset.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
