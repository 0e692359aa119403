package projector

import (
	"math/big"
	"strings"
	"time"

	"escrowScope/internal/model"
)

// FormatUnits renders a smallest-unit integer with the given decimal count.
// Trailing zeros are trimmed down to one fractional digit, so 3000000 with 6 decimals is "3.0".
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		value = new(big.Int)
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))

	text = strings.TrimRight(text, "0")
	if strings.HasSuffix(text, ".") {
		text += "0"
	}
	if sign < 0 {
		return "-" + text
	}
	return text
}

func amount(value *big.Int, decimals uint8) model.Amount {
	if value == nil {
		value = new(big.Int)
	}
	return model.Amount{Raw: value.String(), Display: FormatUnits(value, decimals)}
}

// unixTime converts a contract timestamp; zero means unset.
func unixTime(value *big.Int) *time.Time {
	if value == nil || value.Sign() <= 0 || !value.IsInt64() {
		return nil
	}
	ts := time.Unix(value.Int64(), 0).UTC()
	return &ts
}
