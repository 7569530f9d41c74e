// Package domain contains the pool and token models cached by the market context.
package domain

import (
	"github.com/shopspring/decimal"
)

// Pool is a liquidity pool discovered on a venue. Reserves are in human units;
// Liquidity is USD-denominated. Optional fields are nil when unknown.
type Pool struct {
	Address    string
	BaseAsset  string
	QuoteAsset string
	Venue      string

	BaseReserve   *decimal.Decimal
	QuoteReserve  *decimal.Decimal
	BaseDecimals  uint8
	QuoteDecimals uint8
	Liquidity     *decimal.Decimal

	// Token accounts holding the reserves, when the venue exposes them.
	BaseVault  string
	QuoteVault string
}

// References reports whether the pool holds asset on either side.
func (p Pool) References(asset string) bool {
	return p.BaseAsset == asset || p.QuoteAsset == asset
}

// Pairs reports whether the pool trades a against b, in either direction.
func (p Pool) Pairs(a, b string) bool {
	return (p.BaseAsset == a && p.QuoteAsset == b) || (p.BaseAsset == b && p.QuoteAsset == a)
}

// HasReserves reports whether both reserves are known and positive.
func (p Pool) HasReserves() bool {
	return p.BaseReserve != nil && p.QuoteReserve != nil &&
		p.BaseReserve.IsPositive() && p.QuoteReserve.IsPositive()
}

// LiquidityOrZero returns Liquidity, or zero when unknown.
func (p Pool) LiquidityOrZero() decimal.Decimal {
	if p.Liquidity == nil {
		return decimal.Zero
	}
	return *p.Liquidity
}

// Clone returns a deep copy so cached pools never alias caller values.
func (p Pool) Clone() Pool {
	c := p
	c.BaseReserve = cloneDecimal(p.BaseReserve)
	c.QuoteReserve = cloneDecimal(p.QuoteReserve)
	c.Liquidity = cloneDecimal(p.Liquidity)
	return c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

// DecimalPtr is a convenience for optional decimal fields.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
