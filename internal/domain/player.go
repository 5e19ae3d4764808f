package domain

// Phase is the game's current stage as reported by the rules service.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseDay     Phase = "day"
	PhaseNight   Phase = "night"
	PhaseEnded   Phase = "ended"
)

// Faction groups roles for channel scoping.
type Faction string

const (
	FactionVillage Faction = "village"
	FactionWolves  Faction = "wolves"
	FactionNeutral Faction = "neutral"
)

type Role string

const (
	RoleVillager Role = "villager"
	RoleSeer     Role = "seer"
	RoleWolf     Role = "wolf"
	RoleJester   Role = "jester"
)

// Faction of a role. Unknown roles count as neutral so a new role
// added on the rules side never leaks into a faction channel here.
func (r Role) Faction() Faction {
	switch r {
	case RoleVillager, RoleSeer:
		return FactionVillage
	case RoleWolf:
		return FactionWolves
	default:
		return FactionNeutral
	}
}

// PlayerStatus is the slice of game state the channel policy needs.
// Always fetched fresh from the rules service, never cached.
type PlayerStatus struct {
	Alive bool  `json:"alive"`
	Role  Role  `json:"role"`
	Phase Phase `json:"phase"`
}

// GameSummary is the rules service's view of one room's game.
type GameSummary struct {
	CreatorID   UserID `json:"creator_id"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	Status      string `json:"status"`
}
