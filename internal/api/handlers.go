// Package api exposes the battle service over HTTP and WebSocket using echo.
// Handlers translate between wire DTOs and the auth, catalog, and session
// layers; they hold no game state of their own.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/cory-johannsen/monduel/internal/auth"
	"github.com/cory-johannsen/monduel/internal/game/battle"
	"github.com/cory-johannsen/monduel/internal/game/catalog"
	"github.com/cory-johannsen/monduel/internal/storage/postgres"
)

// AuthFlow is the sign-in surface the handlers need. The auth Service
// satisfies it.
type AuthFlow interface {
	IssueNonce(ctx context.Context, address string) (string, error)
	VerifySignature(ctx context.Context, address, signature string) (string, error)
}

// BattleDirectory is the battle coordination surface the handlers need. The
// session Directory satisfies it.
type BattleDirectory interface {
	StartBattle(ctx context.Context, address, creatureID string) (*battle.Battle, error)
	Get(ctx context.Context, requester, id string) (*battle.Battle, error)
	List(ctx context.Context, address string) ([]*battle.Battle, error)
	Attack(ctx context.Context, requester, id, moveName string) (*battle.Battle, error)
	Surrender(ctx context.Context, requester, id string) (*battle.Battle, error)
}

// ProfileStore reads trainer records for the profile endpoint. The postgres
// TrainerRepository satisfies it.
type ProfileStore interface {
	GetByAddress(ctx context.Context, address string) (postgres.Trainer, error)
}

// Handler implements every HTTP route.
type Handler struct {
	auth     AuthFlow
	battles  BattleDirectory
	profiles ProfileStore
	registry *catalog.Registry
	logger   *zap.Logger
}

// NewHandler creates the route handler set.
//
// Precondition: All five collaborators must be non-nil.
func NewHandler(authFlow AuthFlow, battles BattleDirectory, profiles ProfileStore, registry *catalog.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		auth:     authFlow,
		battles:  battles,
		profiles: profiles,
		registry: registry,
		logger:   logger,
	}
}

// IssueNonce handles POST /api/auth/nonce.
func (h *Handler) IssueNonce(c echo.Context) error {
	var req NonceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	nonce, err := h.auth.IssueNonce(c.Request().Context(), req.Address)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusOK, NonceResponse{
		Address: req.Address,
		Nonce:   nonce,
		Message: auth.SignInMessage(nonce),
	})
}

// VerifySignature handles POST /api/auth/verify.
func (h *Handler) VerifySignature(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	token, err := h.auth.VerifySignature(c.Request().Context(), req.Address, req.Signature)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusOK, VerifyResponse{Token: token})
}

// ListCreatures handles GET /api/creatures. The roster is public; battles
// cannot start without it and sign-in UIs want to show it.
func (h *Handler) ListCreatures(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.All())
}

// Profile handles GET /api/profile.
func (h *Handler) Profile(c echo.Context) error {
	trainer, err := h.profiles.GetByAddress(c.Request().Context(), requesterAddress(c))
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusOK, newProfileResponse(trainer))
}

// StartBattle handles POST /api/battles.
func (h *Handler) StartBattle(c echo.Context) error {
	var req StartBattleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	b, err := h.battles.StartBattle(c.Request().Context(), requesterAddress(c), req.CreatureID)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusCreated, newBattleSnapshot(b, h.registry))
}

// ListBattles handles GET /api/battles. The optional "status" query parameter
// narrows the result, so "?status=active" lists only battles still in play.
func (h *Handler) ListBattles(c echo.Context) error {
	battles, err := h.battles.List(c.Request().Context(), requesterAddress(c))
	if err != nil {
		return h.domainError(c, err)
	}
	if status := c.QueryParam("status"); status != "" {
		filtered := battles[:0]
		for _, b := range battles {
			if string(b.Status) == status {
				filtered = append(filtered, b)
			}
		}
		battles = filtered
	}
	return c.JSON(http.StatusOK, newBattleSnapshots(battles, h.registry))
}

// GetBattle handles GET /api/battles/:id.
func (h *Handler) GetBattle(c echo.Context) error {
	b, err := h.battles.Get(c.Request().Context(), requesterAddress(c), c.Param("id"))
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusOK, newBattleSnapshot(b, h.registry))
}

// Attack handles POST /api/battles/:id/attack.
func (h *Handler) Attack(c echo.Context) error {
	var req AttackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}

	b, err := h.battles.Attack(c.Request().Context(), requesterAddress(c), c.Param("id"), req.Move)
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusOK, newBattleSnapshot(b, h.registry))
}

// Surrender handles POST /api/battles/:id/surrender.
func (h *Handler) Surrender(c echo.Context) error {
	b, err := h.battles.Surrender(c.Request().Context(), requesterAddress(c), c.Param("id"))
	if err != nil {
		return h.domainError(c, err)
	}
	return c.JSON(http.StatusOK, newBattleSnapshot(b, h.registry))
}

// domainError maps domain sentinels onto HTTP statuses. Anything unmapped is
// a 500 and gets logged with its cause; mapped errors are client mistakes and
// only echo their message back.
func (h *Handler) domainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, battle.ErrBattleNotFound),
		errors.Is(err, catalog.ErrCreatureNotFound),
		errors.Is(err, postgres.ErrTrainerNotFound),
		errors.Is(err, auth.ErrUnknownTrainer):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, battle.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, battle.ErrNotYourTurn),
		errors.Is(err, battle.ErrAlreadyFinished),
		errors.Is(err, battle.ErrInvalidMove),
		errors.Is(err, auth.ErrInvalidAddress):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidSignature):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
