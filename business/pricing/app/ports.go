package app

import (
	"context"

	"github.com/shopspring/decimal"

	market "github.com/fd1az/swap-router/business/market/domain"
)

// PriceSource resolves a token's USD price, normally across venues.
type PriceSource interface {
	GetAssetPrice(ctx context.Context, mint string) (decimal.Decimal, error)
}

// TokenStore is the token cache being refreshed.
type TokenStore interface {
	GetAllTokens(ctx context.Context) ([]market.Token, error)
	UpdateTokenPrice(ctx context.Context, address string, price decimal.Decimal) error
}
