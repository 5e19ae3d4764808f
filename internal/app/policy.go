package app

import "github.com/dkeye/Nocturne/internal/domain"

// Access is the per-event answer of the visibility policy. Never
// cached: alive/role/phase can change between any two events.
type Access struct {
	CanRead  bool
	CanWrite bool
	Reason   string
}

type ChannelPolicy interface {
	Check(ch domain.Channel, st domain.PlayerStatus) Access
}

// TablePolicy is the stateless channel table.
type TablePolicy struct{}

func (TablePolicy) Check(ch domain.Channel, st domain.PlayerStatus) Access {
	switch ch {
	case domain.ChannelPublic:
		if st.Phase != domain.PhaseWaiting {
			return Access{CanRead: true, CanWrite: false, Reason: "game already started"}
		}
		return Access{CanRead: true, CanWrite: true}

	case domain.ChannelDead:
		if st.Alive {
			return Access{Reason: "eliminated players only"}
		}
		return Access{CanRead: true, CanWrite: true}

	case domain.ChannelWolves:
		if !st.Alive {
			return Access{Reason: "eliminated players cannot use faction channels"}
		}
		if st.Role.Faction() != domain.FactionWolves {
			return Access{Reason: "not in this faction"}
		}
		if st.Phase != domain.PhaseNight {
			return Access{Reason: "faction channel is open at night only"}
		}
		return Access{CanRead: true, CanWrite: true}

	case domain.ChannelSystem:
		return Access{CanRead: true, CanWrite: false, Reason: "system channel is read only"}
	}
	return Access{Reason: "unknown channel"}
}
