// Package app contains the pool/token repository and its storage port.
package app

import (
	"context"

	"github.com/fd1az/swap-router/business/market/domain"
)

// Store is the backing storage of the repository. Listings preserve
// first-insertion order; Put overwrites in place.
type Store interface {
	Pools(ctx context.Context) ([]domain.Pool, error)
	Pool(ctx context.Context, address string) (domain.Pool, bool, error)
	PutPool(ctx context.Context, pool domain.Pool) error
	DeletePool(ctx context.Context, address string) (bool, error)
	ResetPools(ctx context.Context) error

	Tokens(ctx context.Context) ([]domain.Token, error)
	Token(ctx context.Context, address string) (domain.Token, bool, error)
	PutToken(ctx context.Context, token domain.Token) error
	DeleteToken(ctx context.Context, address string) (bool, error)
	ResetTokens(ctx context.Context) error
}
