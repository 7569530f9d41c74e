// Package app contains the execution service and the ports it drives.
package app

import (
	"context"
	"math/big"

	"github.com/fd1az/swap-router/business/blockchain/domain"
)

// RPC is the part of the Solana JSON-RPC API the service uses.
type RPC interface {
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
	SignatureStatuses(ctx context.Context, signatures ...string) ([]*domain.SignatureStatus, error)
	TokenAccountBalance(ctx context.Context, account string) (*big.Int, uint8, error)
	LatestBlockhash(ctx context.Context) (*domain.Blockhash, error)
	Health(ctx context.Context) error
}

// SignatureWatcher pushes confirmation of a single signature.
type SignatureWatcher interface {
	Wait(ctx context.Context, signature string, commitment domain.Commitment) (*domain.SignatureStatus, error)
}
