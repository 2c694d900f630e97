package auth

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// RecoverAddress recovers the lowercase signer address from a personal-sign
// signature over message. The signature is the 65-byte r||s||v form produced
// by eth_sign / personal_sign, hex-encoded with or without a 0x prefix.
//
// Postcondition: Returns the signer's canonical address or ErrInvalidSignature.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return "", fmt.Errorf("%w: not hex encoded", ErrInvalidSignature)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("%w: expected 65 bytes, got %d", ErrInvalidSignature, len(sig))
	}

	// Wallets emit the legacy 27/28 recovery id; SigToPub expects 0/1.
	if sig[64] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return "", fmt.Errorf("%w: invalid recovery id %d", ErrInvalidSignature, sig[64])
	}

	pub, err := ethcrypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return strings.ToLower(ethcrypto.PubkeyToAddress(*pub).Hex()), nil
}

// VerifySignature reports whether signature over message was produced by
// address. The address may be any capitalization; comparison is canonical.
//
// Postcondition: Returns nil iff the signature recovers to address.
func VerifySignature(address, message, signature string) error {
	want, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	got, err := RecoverAddress(message, signature)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: signer %s does not match %s", ErrInvalidSignature, got, want)
	}
	return nil
}
