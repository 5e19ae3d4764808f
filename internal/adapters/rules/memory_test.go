package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Nocturne/internal/domain"
)

func TestInMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewInMemory()

	_, err := m.Summary(ctx, "r1")
	require.ErrorIs(t, err, ErrGameNotFound)

	require.NoError(t, m.PlayerJoined(ctx, "r1", "uA"))
	require.NoError(t, m.PlayerJoined(ctx, "r1", "uB"))

	summary, err := m.Summary(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("uA"), summary.CreatorID, "first joiner becomes creator")
	assert.Equal(t, 2, summary.PlayerCount)

	st, err := m.PlayerStatus(ctx, "r1", "uB")
	require.NoError(t, err)
	assert.True(t, st.Alive)
	assert.Equal(t, domain.PhaseWaiting, st.Phase)

	_, err = m.PlayerStatus(ctx, "r1", "uZ")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestInMemoryHostTransfer(t *testing.T) {
	ctx := context.Background()
	m := NewInMemory()
	require.NoError(t, m.PlayerJoined(ctx, "r1", "uA"))
	require.NoError(t, m.PlayerJoined(ctx, "r1", "uB"))

	require.NoError(t, m.HostTransfer(ctx, "r1", "uA"))
	summary, err := m.Summary(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("uB"), summary.CreatorID)

	// Non-host leaving does not move the host.
	require.NoError(t, m.HostTransfer(ctx, "r1", "uA"))
	summary, _ = m.Summary(ctx, "r1")
	assert.Equal(t, domain.UserID("uB"), summary.CreatorID)
}

func TestInMemoryEmptyGameRemoved(t *testing.T) {
	ctx := context.Background()
	m := NewInMemory()
	require.NoError(t, m.PlayerJoined(ctx, "r1", "uA"))
	require.NoError(t, m.PlayerLeft(ctx, "r1", "uA"))

	_, err := m.Summary(ctx, "r1")
	assert.ErrorIs(t, err, ErrGameNotFound)
}
