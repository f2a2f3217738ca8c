package amount

import (
	"math/big"
	"strings"

	"priceScope/internal/apperr"
)

var ten = big.NewInt(10)

// FormatUnits renders a raw integer amount as a decimal string with the
// given number of fractional digits. The conversion is exact: no rounding
// is ever applied and trailing fractional zeros are stripped.
func FormatUnits(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	if decimals == 0 {
		return raw.String()
	}

	power := new(big.Int).Exp(ten, big.NewInt(int64(decimals)), nil)
	if power.Sign() == 0 {
		// Unreachable with arbitrary precision, kept as a floor so a bad
		// exponent can never divide by zero.
		return raw.String()
	}

	integer, fraction := new(big.Int).QuoRem(raw, power, new(big.Int))
	if fraction.Sign() == 0 {
		return integer.String()
	}

	fractionStr := fraction.String()
	if pad := int(decimals) - len(fractionStr); pad > 0 {
		fractionStr = strings.Repeat("0", pad) + fractionStr
	}
	fractionStr = strings.TrimRight(fractionStr, "0")
	if fractionStr == "" {
		return integer.String()
	}
	return integer.String() + "." + fractionStr
}

// ParseUint parses a non-negative decimal integer string.
func ParseUint(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "invalid numeric value: %s", raw)
	}
	return value, nil
}

// FractionDigits counts the digits after the decimal point in a formatted
// amount string.
func FractionDigits(formatted string) uint32 {
	if i := strings.IndexByte(formatted, '.'); i >= 0 {
		return uint32(len(formatted) - i - 1)
	}
	return 0
}
