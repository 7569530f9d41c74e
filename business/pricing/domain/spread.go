package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Spread compares a venue's output with the best output for the same request.
type Spread struct {
	Best        *big.Int
	Output      *big.Int
	Shortfall   *big.Int        // Best - Output, in output units
	BasisPoints decimal.Decimal // Shortfall / Best * 10000
}

// QuoteSpread measures how far output falls short of best. A zero best yields
// zero basis points.
func QuoteSpread(best, output *big.Int) Spread {
	if best == nil {
		best = new(big.Int)
	}
	if output == nil {
		output = new(big.Int)
	}

	shortfall := new(big.Int).Sub(best, output)
	bps := decimal.Zero
	if best.Sign() != 0 {
		bps = decimal.NewFromBigInt(shortfall, 0).
			Mul(decimal.NewFromInt(BpsDenominator)).
			DivRound(decimal.NewFromBigInt(best, 0), 2)
	}

	return Spread{
		Best:        best,
		Output:      output,
		Shortfall:   shortfall,
		BasisPoints: bps,
	}
}

// SpreadBps returns the spread between two USD prices, (b - a) / a * 10000.
func SpreadBps(a, b decimal.Decimal) decimal.Decimal {
	if a.IsZero() {
		return decimal.Zero
	}
	return b.Sub(a).Div(a).Mul(decimal.NewFromInt(BpsDenominator))
}
