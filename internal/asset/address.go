package asset

import (
	"github.com/mr-tron/base58"

	"github.com/fd1az/swap-router/internal/apperror"
)

// Solana addresses are base58 encodings of 32 bytes: 32 to 44 characters.
const (
	MinAddressLength = 32
	MaxAddressLength = 44
)

// ValidateAddress checks the length bounds of an address.
func ValidateAddress(addr string) error {
	if len(addr) < MinAddressLength || len(addr) > MaxAddressLength {
		return apperror.New(apperror.CodeInvalidAddress,
			apperror.WithContext(addr))
	}
	return nil
}

// IsBase58 reports whether addr only uses the base58 alphabet.
func IsBase58(addr string) bool {
	if addr == "" {
		return false
	}
	_, err := base58.Decode(addr)
	return err == nil
}
