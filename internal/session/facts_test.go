package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFacts_EmptyStore(t *testing.T) {
	facts, err := LoadFacts(context.Background(), NewMemoryStore(), slog.Default())
	require.NoError(t, err)
	assert.False(t, facts.HasToken())
	assert.False(t, facts.Approved)
}

func TestLoadFacts_TokenAndApproval(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyUserToken, "tok"))
	require.NoError(t, store.Set(ctx, KeyApproved, "true"))

	facts, err := LoadFacts(ctx, store, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "tok", facts.Token)
	assert.True(t, facts.Approved)
}

func TestLoadFacts_OnlyExactTrueCountsAsApproved(t *testing.T) {
	ctx := context.Background()
	for _, v := range []string{"TRUE", "1", "yes", "false", ""} {
		store := NewMemoryStore()
		require.NoError(t, store.Set(ctx, KeyUserToken, "tok"))
		require.NoError(t, store.Set(ctx, KeyApproved, v))

		facts, err := LoadFacts(ctx, store, slog.Default())
		require.NoError(t, err)
		assert.False(t, facts.Approved, v)
	}
}

func TestLoadFacts_ApprovalWithoutTokenIsReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, KeyApproved, "true"))

	facts, err := LoadFacts(ctx, store, slog.Default())
	require.NoError(t, err)
	assert.False(t, facts.Approved)
	assert.False(t, facts.HasToken())

	v, ok, err := store.Get(ctx, KeyApproved)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "false", v)
}

func TestLoadFacts_StoreFailureIsOperationFailure(t *testing.T) {
	boom := errors.New("disk gone")
	store := &MockStore{
		GetFunc: func(ctx context.Context, key string) (string, bool, error) {
			return "", false, boom
		},
	}

	_, err := LoadFacts(context.Background(), store, slog.Default())
	assert.ErrorIs(t, err, models.ErrOperationFailure)
	assert.ErrorIs(t, err, boom)
}

func TestMarkApproved_RequiresToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	assert.ErrorIs(t, MarkApproved(ctx, store), models.ErrInvalidSession)
	_, ok, _ := store.Get(ctx, KeyApproved)
	assert.False(t, ok)

	require.NoError(t, SaveToken(ctx, store, "tok"))
	require.NoError(t, MarkApproved(ctx, store))

	facts, err := LoadFacts(ctx, store, slog.Default())
	require.NoError(t, err)
	assert.True(t, facts.Approved)
}

func TestSaveToken_RejectsEmpty(t *testing.T) {
	assert.ErrorIs(t, SaveToken(context.Background(), NewMemoryStore(), ""), models.ErrOperationFailure)
}

func TestSaveToken_WriteFailure(t *testing.T) {
	store := &MockStore{
		SetFunc: func(ctx context.Context, key, value string) error {
			return errors.New("read-only")
		},
	}
	assert.ErrorIs(t, SaveToken(context.Background(), store, "tok"), models.ErrOperationFailure)
}
