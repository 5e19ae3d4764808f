package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Inbound
		wantErr error
	}{
		{
			name: "join room",
			data: `{"type":"join_room","room":"r1"}`,
			want: JoinRoom{Room: "r1"},
		},
		{
			name: "send message",
			data: `{"type":"send_message","channel":"public","content":"hi"}`,
			want: SendMessage{Channel: "public", Content: "hi"},
		},
		{
			name: "perform action",
			data: `{"type":"perform_action","action":"inspect","target":"u2"}`,
			want: PerformAction{Action: "inspect", Target: "u2"},
		},
		{
			name: "bare kinds",
			data: `{"type":"ping"}`,
			want: Ping{},
		},
		{
			name:    "unknown kind",
			data:    `{"type":"self_destruct"}`,
			wantErr: ErrUnknownKind,
		},
		{
			name:    "not json",
			data:    `not json at all`,
			wantErr: ErrBadPayload,
		},
		{
			name:    "missing required field",
			data:    `{"type":"join_room"}`,
			wantErr: ErrBadPayload,
		},
		{
			name:    "oversized content",
			data:    `{"type":"send_message","channel":"public","content":"` + strings.Repeat("x", 501) + `"}`,
			wantErr: ErrBadPayload,
		},
		{
			name:    "empty rename",
			data:    `{"type":"rename","name":""}`,
			wantErr: ErrBadPayload,
		},
		{
			name:    "empty room name",
			data:    `{"type":"create_room","name":""}`,
			wantErr: ErrBadPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeKindMatchesEvent(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"create_room","name":"den"}`))
	require.NoError(t, err)
	assert.Equal(t, KindCreateRoom, ev.Kind())
}
