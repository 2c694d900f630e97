// Package auth implements wallet-signature authentication: a trainer proves
// control of an Ethereum address by signing a server-issued nonce, and
// receives a short-lived JWT for subsequent requests.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// SignInMessage is the exact text a wallet signs, parameterized by nonce.
// Changing this string invalidates every client, so it is frozen.
func SignInMessage(nonce string) string {
	return "Sign this message to verify your identity. Nonce: " + nonce
}

// ErrInvalidSignature is returned when a signature does not recover to the
// claimed address.
var ErrInvalidSignature = errors.New("invalid signature")

// ErrInvalidAddress is returned when a string is not a hex Ethereum address.
var ErrInvalidAddress = errors.New("invalid wallet address")

// ErrInvalidToken is returned when a session token fails verification.
var ErrInvalidToken = errors.New("invalid token")

// GenerateNonce returns a fresh 32-byte hex nonce.
//
// Postcondition: Returns a 64-character lowercase hex string.
func GenerateNonce() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// NormalizeAddress validates and canonicalizes a wallet address to lowercase
// hex. All storage and comparison uses the canonical form.
//
// Postcondition: Returns a lowercase 0x-prefixed address or ErrInvalidAddress.
func NormalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}
