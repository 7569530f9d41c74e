package domain

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"

	"github.com/mr-tron/base58"

	"github.com/fd1az/swap-router/internal/apperror"
)

const (
	signatureSize = ed25519.SignatureSize
	pubkeySize    = ed25519.PublicKeySize

	// versionPrefix marks a versioned (v0+) message.
	versionPrefix = 0x80
)

// SignTransaction signs a serialized legacy or v0 transaction in place of
// the signer's slot and returns the signed bytes plus the base58 signature,
// which is also the transaction id.
func SignTransaction(tx []byte, key *Keypair) ([]byte, string, error) {
	sigCount, n, err := decodeShortVec(tx)
	if err != nil {
		return nil, "", invalidTx("signature count: " + err.Error())
	}
	msgStart := n + sigCount*signatureSize
	if sigCount == 0 || msgStart >= len(tx) {
		return nil, "", invalidTx("transaction has no signature slots")
	}

	message := tx[msgStart:]
	signers, keys, err := messageSigners(message)
	if err != nil {
		return nil, "", err
	}
	if signers > sigCount {
		return nil, "", invalidTx("fewer signature slots than required signers")
	}

	slot := -1
	pub := key.PublicKeyBytes()
	for i := 0; i < signers; i++ {
		if bytes.Equal(keys[i*pubkeySize:(i+1)*pubkeySize], pub) {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, "", apperror.New(apperror.CodeSigningFailed,
			apperror.WithContext("wallet "+key.PublicKey()+" is not a required signer"))
	}

	signed := make([]byte, len(tx))
	copy(signed, tx)
	sig := key.Sign(message)
	copy(signed[n+slot*signatureSize:], sig)

	return signed, base58.Encode(sig), nil
}

// SignTransactionBase64 is SignTransaction over base64 wire encoding.
func SignTransactionBase64(txBase64 string, key *Keypair) (string, string, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", "", apperror.New(apperror.CodeTransactionInvalid,
			apperror.WithCause(err),
			apperror.WithContext("transaction is not base64"))
	}
	signed, sig, err := SignTransaction(raw, key)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(signed), sig, nil
}

// messageSigners reads the message header and returns the number of required
// signers together with the static account keys.
func messageSigners(msg []byte) (int, []byte, error) {
	off := 0
	if msg[0]&versionPrefix != 0 {
		if msg[0] != versionPrefix {
			return 0, nil, invalidTx("unsupported message version")
		}
		off = 1
	}
	if len(msg) < off+3 {
		return 0, nil, invalidTx("truncated message header")
	}
	signers := int(msg[off])
	off += 3

	count, n, err := decodeShortVec(msg[off:])
	if err != nil {
		return 0, nil, invalidTx("account key count: " + err.Error())
	}
	off += n
	if count < signers || len(msg) < off+count*pubkeySize {
		return 0, nil, invalidTx("truncated account keys")
	}
	return signers, msg[off : off+count*pubkeySize], nil
}

// decodeShortVec reads Solana's compact-u16 length prefix.
func decodeShortVec(b []byte) (value, size int, err error) {
	for size < 3 {
		if size >= len(b) {
			return 0, 0, apperror.New(apperror.CodeTransactionInvalid, apperror.WithContext("truncated length"))
		}
		c := b[size]
		value |= int(c&0x7f) << (7 * size)
		size++
		if c&0x80 == 0 {
			return value, size, nil
		}
	}
	return 0, 0, apperror.New(apperror.CodeTransactionInvalid, apperror.WithContext("length overflows u16"))
}

func invalidTx(msg string) error {
	return apperror.New(apperror.CodeTransactionInvalid, apperror.WithContext(msg))
}
