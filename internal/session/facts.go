package session

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/alumni-onboard/internal/models"
)

const approvedValue = "true"

// LoadFacts reads the session facts. An approval flag without a token
// cannot come from the flow itself; it is treated as unauthenticated and
// the flag is cleared in the store.
func LoadFacts(ctx context.Context, store Store, logger *slog.Logger) (models.SessionFacts, error) {
	token, _, err := store.Get(ctx, KeyUserToken)
	if err != nil {
		return models.SessionFacts{}, models.OperationFailed("read session token", err)
	}
	approved, _, err := store.Get(ctx, KeyApproved)
	if err != nil {
		return models.SessionFacts{}, models.OperationFailed("read approval flag", err)
	}

	facts := models.SessionFacts{Token: token, Approved: approved == approvedValue}
	if facts.Approved && !facts.HasToken() {
		logger.Warn("approval flag present without session token, resetting")
		if err := store.Set(ctx, KeyApproved, "false"); err != nil {
			logger.Error("failed to reset approval flag", slog.Any("error", err))
		}
		facts.Approved = false
	}

	return facts, nil
}

// SaveToken records the session token written at PIN setup.
func SaveToken(ctx context.Context, store Store, token string) error {
	if token == "" {
		return models.OperationFailed("write session token", models.ErrBadRequest)
	}
	if err := store.Set(ctx, KeyUserToken, token); err != nil {
		return models.OperationFailed("write session token", err)
	}
	return nil
}

// MarkApproved records membership approval. It refuses when no token is
// stored, since approval cannot precede authentication.
func MarkApproved(ctx context.Context, store Store) error {
	token, _, err := store.Get(ctx, KeyUserToken)
	if err != nil {
		return models.OperationFailed("read session token", err)
	}
	if token == "" {
		return models.ErrInvalidSession
	}
	if err := store.Set(ctx, KeyApproved, approvedValue); err != nil {
		return models.OperationFailed("write approval flag", err)
	}
	return nil
}

// SavePINHash stores the hashed PIN chosen at PIN setup.
func SavePINHash(ctx context.Context, store Store, hash string) error {
	if err := store.Set(ctx, KeyPINHash, hash); err != nil {
		return models.OperationFailed("write PIN hash", err)
	}
	return nil
}
