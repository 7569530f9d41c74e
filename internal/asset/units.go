package asset

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount  = errors.New("asset: negative amount")
	ErrTooManyDecimals = errors.New("asset: more fractional digits than the mint supports")
)

// ToDecimal converts a smallest-unit amount (lamports, micro-USDC) into token
// units. Nil is zero.
func ToDecimal(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// ToRaw is the inverse of ToDecimal. It refuses to round: "0.0000001" USDC is
// an error, not zero.
func ToRaw(units decimal.Decimal, decimals uint8) (*big.Int, error) {
	raw, exact, err := scale(units, decimals)
	if err != nil {
		return nil, err
	}
	if !exact {
		return nil, ErrTooManyDecimals
	}
	return raw, nil
}

// ToRawFloor is ToRaw with sub-unit digits truncated. Pool reserves reported
// in token units go through here.
func ToRawFloor(units decimal.Decimal, decimals uint8) (*big.Int, error) {
	raw, _, err := scale(units, decimals)
	return raw, err
}

func scale(units decimal.Decimal, decimals uint8) (raw *big.Int, exact bool, err error) {
	if units.IsNegative() {
		return nil, false, ErrNegativeAmount
	}
	shifted := units.Shift(int32(decimals))
	whole := shifted.Truncate(0)
	return whole.BigInt(), whole.Equal(shifted), nil
}

// Format renders raw in token units with the asset's symbol, e.g. "1.5 SOL".
func (a *Asset) Format(raw *big.Int) string {
	return ToDecimal(raw, a.decimals).String() + " " + a.Symbol()
}
