package utils

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// FormatBigInt converts a big.Int value to a human-readable string,
// considering the given number of decimals. Trailing zeros are dropped.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatBigInt(amount *big.Int, decimals uint8) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}

	coeff := new(apd.BigInt).SetMathBigInt(amount)
	d := apd.NewWithBigInt(coeff, -int32(decimals))
	d.Reduce(d)
	return d.Text('f')
}

// FormatAmount renders amount with its unit, e.g. "1.5 CKB".
func FormatAmount(amount *big.Int, decimals uint8, symbol string) string {
	return FormatBigInt(amount, decimals) + " " + symbol
}

// ToMinorUnits scales a whole-unit amount by 10^decimals.
func ToMinorUnits(amount *big.Int, decimals int32) *big.Int {
	if amount == nil {
		return nil
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Int).Mul(amount, scale)
}
