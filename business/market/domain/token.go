package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/internal/asset"
)

// Token is SPL token metadata with an optional USD price.
type Token struct {
	Address  string
	Symbol   string
	Name     string
	Decimals uint8
	Price    *decimal.Decimal
}

// TokenFromAsset converts well-known asset metadata into a Token without a price.
func TokenFromAsset(a *asset.Asset) Token {
	return Token{
		Address:  a.Mint(),
		Symbol:   a.Symbol(),
		Name:     a.Name(),
		Decimals: a.Decimals(),
	}
}

// Clone returns a deep copy.
func (t Token) Clone() Token {
	c := t
	c.Price = cloneDecimal(t.Price)
	return c
}
