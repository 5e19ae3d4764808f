package auth

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Nocturne/internal/domain"
)

func TestGuestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("empty credential rejected", func(t *testing.T) {
		_, err := Guest{}.Verify(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyCredential)
	})

	t.Run("short credential kept as is", func(t *testing.T) {
		id, err := Guest{}.Verify(ctx, "tok-123")
		require.NoError(t, err)
		assert.Equal(t, domain.UserID("tok-123"), id.UserID)
		assert.Equal(t, "guest", id.DisplayName)
	})

	t.Run("oversized credential truncated", func(t *testing.T) {
		id, err := Guest{}.Verify(ctx, strings.Repeat("a", domain.MaxUserIDLen+10))
		require.NoError(t, err)
		assert.Len(t, string(id.UserID), domain.MaxUserIDLen)
	})

	t.Run("truncation lands on a rune boundary", func(t *testing.T) {
		// A multi-byte rune straddling the length cap must be dropped
		// whole, never split.
		cred := strings.Repeat("a", domain.MaxUserIDLen-1) + "日本語"
		id, err := Guest{}.Verify(ctx, cred)
		require.NoError(t, err)
		assert.True(t, utf8.ValidString(string(id.UserID)))
		assert.LessOrEqual(t, len(id.UserID), domain.MaxUserIDLen)
		assert.Equal(t, strings.Repeat("a", domain.MaxUserIDLen-1), string(id.UserID))
	})
}
