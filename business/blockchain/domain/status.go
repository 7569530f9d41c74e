// Package domain contains the Solana wallet, transaction and confirmation
// types of the blockchain context.
package domain

import (
	"encoding/json"
)

// Commitment is a Solana confirmation level.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

func (c Commitment) rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	}
	return 0
}

// Reaches reports whether c is at least as strong as target.
func (c Commitment) Reaches(target Commitment) bool {
	return c.rank() > 0 && c.rank() >= target.rank()
}

// SignatureStatus is one entry of getSignatureStatuses.
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus Commitment      `json:"confirmationStatus"`
}

// Failed reports whether the transaction landed with an error.
func (s SignatureStatus) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// Blockhash is a recent blockhash and the last block height it is valid for.
type Blockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}
