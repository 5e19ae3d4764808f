package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/Nocturne/internal/domain"
)

func TestChannelPolicyTable(t *testing.T) {
	alive := func(role domain.Role, phase domain.Phase) domain.PlayerStatus {
		return domain.PlayerStatus{Alive: true, Role: role, Phase: phase}
	}
	dead := func(role domain.Role, phase domain.Phase) domain.PlayerStatus {
		return domain.PlayerStatus{Alive: false, Role: role, Phase: phase}
	}

	tests := []struct {
		name     string
		channel  domain.Channel
		status   domain.PlayerStatus
		canRead  bool
		canWrite bool
		reason   string
	}{
		{
			name:     "public open before start",
			channel:  domain.ChannelPublic,
			status:   alive(domain.RoleVillager, domain.PhaseWaiting),
			canRead:  true,
			canWrite: true,
		},
		{
			name:     "public read only once started",
			channel:  domain.ChannelPublic,
			status:   alive(domain.RoleVillager, domain.PhaseDay),
			canRead:  true,
			canWrite: false,
			reason:   "game already started",
		},
		{
			name:     "public readable while dead",
			channel:  domain.ChannelPublic,
			status:   dead(domain.RoleVillager, domain.PhaseNight),
			canRead:  true,
			canWrite: false,
			reason:   "game already started",
		},
		{
			name:     "dead channel closed to the living",
			channel:  domain.ChannelDead,
			status:   alive(domain.RoleVillager, domain.PhaseDay),
			canRead:  false,
			canWrite: false,
			reason:   "eliminated players only",
		},
		{
			name:     "dead channel open to the dead",
			channel:  domain.ChannelDead,
			status:   dead(domain.RoleSeer, domain.PhaseDay),
			canRead:  true,
			canWrite: true,
		},
		{
			name:     "wolves channel open to living wolf at night",
			channel:  domain.ChannelWolves,
			status:   alive(domain.RoleWolf, domain.PhaseNight),
			canRead:  true,
			canWrite: true,
		},
		{
			name:     "wolves channel closed to dead wolf",
			channel:  domain.ChannelWolves,
			status:   dead(domain.RoleWolf, domain.PhaseNight),
			canRead:  false,
			canWrite: false,
			reason:   "eliminated players cannot use faction channels",
		},
		{
			name:     "wolves channel closed to villager",
			channel:  domain.ChannelWolves,
			status:   alive(domain.RoleVillager, domain.PhaseNight),
			canRead:  false,
			canWrite: false,
			reason:   "not in this faction",
		},
		{
			name:     "wolves channel closed by day",
			channel:  domain.ChannelWolves,
			status:   alive(domain.RoleWolf, domain.PhaseDay),
			canRead:  false,
			canWrite: false,
			reason:   "faction channel is open at night only",
		},
		{
			name:     "system readable by all writable by none",
			channel:  domain.ChannelSystem,
			status:   alive(domain.RoleVillager, domain.PhaseWaiting),
			canRead:  true,
			canWrite: false,
			reason:   "system channel is read only",
		},
		{
			name:    "unknown channel denied",
			channel: domain.Channel("whispers"),
			status:  alive(domain.RoleVillager, domain.PhaseWaiting),
			reason:  "unknown channel",
		},
	}

	policy := TablePolicy{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := policy.Check(tt.channel, tt.status)
			assert.Equal(t, tt.canRead, acc.CanRead, "CanRead")
			assert.Equal(t, tt.canWrite, acc.CanWrite, "CanWrite")
			assert.Equal(t, tt.reason, acc.Reason, "Reason")
		})
	}
}
