package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/monduel/internal/storage/postgres"
)

// ErrUnknownTrainer is returned when a verify call names an address that
// never requested a nonce.
var ErrUnknownTrainer = errors.New("unknown trainer")

// TrainerStore is the persistence surface the auth flow needs. The postgres
// TrainerRepository satisfies it.
type TrainerStore interface {
	UpsertNonce(ctx context.Context, address, nonce string) (postgres.Trainer, error)
	GetByAddress(ctx context.Context, address string) (postgres.Trainer, error)
	RotateNonce(ctx context.Context, address, nonce string) error
}

// Service runs the two-step sign-in flow: issue a nonce, then trade a
// signature over it for a session token.
type Service struct {
	store  TrainerStore
	issuer *TokenIssuer
	logger *zap.Logger
}

// NewService creates an auth Service.
//
// Precondition: store, issuer, and logger must be non-nil.
func NewService(store TrainerStore, issuer *TokenIssuer, logger *zap.Logger) *Service {
	return &Service{store: store, issuer: issuer, logger: logger}
}

// IssueNonce registers the address if needed and returns a fresh nonce for
// it. Every call invalidates the previous nonce.
//
// Postcondition: Returns the nonce now stored for the canonical address, or
// ErrInvalidAddress.
func (s *Service) IssueNonce(ctx context.Context, address string) (string, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	nonce, err := GenerateNonce()
	if err != nil {
		return "", err
	}
	if _, err := s.store.UpsertNonce(ctx, addr, nonce); err != nil {
		return "", fmt.Errorf("storing nonce: %w", err)
	}
	s.logger.Debug("auth: nonce issued", zap.String("address", addr))
	return nonce, nil
}

// VerifySignature checks the signature against the stored nonce and, on
// success, rotates the nonce and returns a session token.
//
// Postcondition: Returns a token for the canonical address; the old nonce can
// never authenticate again. Fails with ErrUnknownTrainer when no nonce was
// issued, or ErrInvalidSignature on mismatch.
func (s *Service) VerifySignature(ctx context.Context, address, signature string) (string, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return "", err
	}

	trainer, err := s.store.GetByAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, postgres.ErrTrainerNotFound) {
			return "", ErrUnknownTrainer
		}
		return "", fmt.Errorf("loading trainer: %w", err)
	}

	if err := VerifySignature(addr, SignInMessage(trainer.Nonce), signature); err != nil {
		s.logger.Info("auth: signature rejected", zap.String("address", addr), zap.Error(err))
		return "", err
	}

	// Rotation before issuance: a token for a replayable nonce is worse than
	// a failed login.
	next, err := GenerateNonce()
	if err != nil {
		return "", err
	}
	if err := s.store.RotateNonce(ctx, addr, next); err != nil {
		return "", fmt.Errorf("rotating nonce: %w", err)
	}

	token, err := s.issuer.Issue(addr)
	if err != nil {
		return "", err
	}
	s.logger.Info("auth: trainer signed in", zap.String("address", addr))
	return token, nil
}
