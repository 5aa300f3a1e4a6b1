package protocol

import "grand-strategy/internal/game"

// ==================== Authentication Payloads ====================

// AuthenticatePayload is sent to authenticate/register a player.
type AuthenticatePayload struct {
	Token string `json:"token,omitempty"` // Existing token for returning players
	Name  string `json:"name"`            // Display name
}

// AuthResultPayload is the response to authentication.
type AuthResultPayload struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"player_id"`
	Token    string `json:"token"` // Save this for reconnecting
	Name     string `json:"name"`
	Error    string `json:"error,omitempty"`
}

// ==================== Game Binding Payloads ====================

// JoinGamePayload attaches the connection to the game owned by a server.
type JoinGamePayload struct {
	ServerID string `json:"server_id"`
}

// JoinedGamePayload confirms the binding. Nation is empty for spectators.
type JoinedGamePayload struct {
	GameID string `json:"game_id"`
	Name   string `json:"name"`
	Nation string `json:"nation,omitempty"`
}

// GameStatePayload is the full game view sent after joining and on request.
type GameStatePayload struct {
	Game      *game.Savegame `json:"game"`
	Summaries []game.Summary `json:"summaries"`
}

// MapChangedPayload tells clients the ownership map was redrawn.
type MapChangedPayload struct {
	Generation int               `json:"generation"`
	Image      string            `json:"image"`
	Colors     map[string]string `json:"colors"`
}

// GameHistoryPayload carries audit log entries.
type GameHistoryPayload struct {
	Events []HistoryEntry `json:"events"`
}

// HistoryEntry is one audit log line.
type HistoryEntry struct {
	ID      int64  `json:"id"`
	Turn    int    `json:"turn"`
	Date    string `json:"date"`
	Nation  string `json:"nation,omitempty"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ==================== Nation Action Payloads ====================

// BuildingPayload names a building type in a territory.
type BuildingPayload struct {
	Territory string `json:"territory"`
	Building  string `json:"building"`
}

// BuildingInstancePayload names one building instance.
type BuildingInstancePayload struct {
	Territory string `json:"territory"`
	Building  string `json:"building"`
	Index     int    `json:"index"`
	Active    bool   `json:"active,omitempty"`
}

// RecruitUnitPayload raises a unit into a force.
type RecruitUnitPayload struct {
	Territory string `json:"territory"`
	UnitType  string `json:"unit_type"`
	Size      int    `json:"size"`
	Force     string `json:"force"`
	Unit      string `json:"unit"`
}

// CombineUnitsPayload merges unit B into unit A.
type CombineUnitsPayload struct {
	Force string `json:"force"`
	A     string `json:"a"`
	B     string `json:"b"`
}

// SplitUnitPayload carves named parts out of a unit.
type SplitUnitPayload struct {
	Force string         `json:"force"`
	Unit  string         `json:"unit"`
	Parts map[string]int `json:"parts"`
}

// CombineForcesPayload merges Source into Target.
type CombineForcesPayload struct {
	Target string `json:"target"`
	Source string `json:"source"`
}

// SplitForcePayload moves units into a new force.
type SplitForcePayload struct {
	Force string   `json:"force"`
	Units []string `json:"units"`
}

// UnitPayload names a unit within a force.
type UnitPayload struct {
	Force string `json:"force"`
	Unit  string `json:"unit"`
}

// ForcePayload names a force, with an optional flag or destination.
type ForcePayload struct {
	Force  string `json:"force"`
	Active bool   `json:"active,omitempty"`
	Target string `json:"target,omitempty"`
}

// ActionResultPayload reports the outcome of an action.
type ActionResultPayload struct {
	RequestID string `json:"request_id"`
	Action    string `json:"action"`
	Success   bool   `json:"success"`
	// NothingToDo is set when the action was valid but changed nothing.
	NothingToDo bool   `json:"nothing_to_do,omitempty"`
	Message     string `json:"message,omitempty"`
}

// ==================== Administrative Payloads ====================

// AdvanceTurnPayload advances the game.
type AdvanceTurnPayload struct {
	Months int `json:"months"`
}

// TurnAdvancedPayload is broadcast after a turn.
type TurnAdvancedPayload struct {
	Report *game.TurnReport `json:"report"`
}

// TransferTerritoryPayload gives a territory to a nation.
type TransferTerritoryPayload struct {
	Territory string `json:"territory"`
	Nation    string `json:"nation"`
}

// SetRelationPayload records a diplomatic stance.
type SetRelationPayload struct {
	Nation   string `json:"nation"`
	Other    string `json:"other"`
	Relation string `json:"relation"`
}

// BattlePayload names one or two forces.
type BattlePayload struct {
	A game.ForceRef  `json:"a"`
	B *game.ForceRef `json:"b,omitempty"`
}

// ==================== System Payloads ====================

// WelcomePayload is sent when a client connects.
type WelcomePayload struct {
	ServerVersion string `json:"server_version"`
}
