package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoomName(t *testing.T) {
	name, err := NewRoomName("den")
	require.NoError(t, err)
	assert.Equal(t, RoomName("den"), name)

	_, err = NewRoomName("")
	assert.ErrorIs(t, err, ErrRoomNameEmpty)

	_, err = NewRoomName(strings.Repeat("x", MaxRoomNameLen+1))
	assert.ErrorIs(t, err, ErrRoomNameTooLong)
}
