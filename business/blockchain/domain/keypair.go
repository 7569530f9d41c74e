package domain

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"github.com/fd1az/swap-router/internal/apperror"
)

// Keypair is a Solana ed25519 wallet key.
type Keypair struct {
	private ed25519.PrivateKey
}

// ParseKeypair decodes a base58 64-byte secret key (seed followed by public
// key). The public half must match the seed and be a valid curve point.
func ParseKeypair(secret string) (*Keypair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidKey,
			apperror.WithCause(err),
			apperror.WithContext("secret key is not base58"))
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, apperror.New(apperror.CodeInvalidKey,
			apperror.WithContext("secret key must be 64 bytes"))
	}

	pub := raw[ed25519.SeedSize:]
	if !onCurve(pub) {
		return nil, apperror.New(apperror.CodeInvalidKey,
			apperror.WithContext("public key is not an ed25519 point"))
	}

	priv := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if subtle.ConstantTimeCompare(priv.Public().(ed25519.PublicKey), pub) != 1 {
		return nil, apperror.New(apperror.CodeInvalidKey,
			apperror.WithContext("public key does not match seed"))
	}
	return &Keypair{private: priv}, nil
}

// GenerateKeypair creates a random wallet key.
func GenerateKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}
	return &Keypair{private: priv}, nil
}

// PublicKey returns the base58 wallet address.
func (k *Keypair) PublicKey() string {
	return base58.Encode(k.PublicKeyBytes())
}

func (k *Keypair) PublicKeyBytes() []byte {
	return k.private.Public().(ed25519.PublicKey)
}

// SecretKey returns the base58 64-byte secret, the format ParseKeypair reads.
func (k *Keypair) SecretKey() string {
	return base58.Encode(k.private)
}

func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// IsOnCurve reports whether the base58 address decodes to a valid ed25519
// point. Program-derived addresses are off the curve.
func IsOnCurve(address string) bool {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return false
	}
	return onCurve(raw)
}

func onCurve(pub []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(pub)
	return err == nil
}
