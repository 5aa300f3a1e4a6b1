// Package protocol defines the network message types for client-server communication.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the type of message.
type MessageType string

// Authentication message types
const (
	TypeAuthenticate MessageType = "authenticate"
	TypeAuthResult   MessageType = "auth_result"
)

// Game binding message types
const (
	TypeJoinGame    MessageType = "join_game"
	TypeJoinedGame  MessageType = "joined_game"
	TypeGameState   MessageType = "game_state"
	TypeGameHistory MessageType = "game_history"
	TypeMapChanged  MessageType = "map_changed"
)

// Nation action message types
const (
	TypeCanBuyBuilding    MessageType = "can_buy_building"
	TypeBuyBuilding       MessageType = "buy_building"
	TypeDestroyBuilding   MessageType = "destroy_building"
	TypeSetBuildingActive MessageType = "set_building_active"
	TypeRecruitUnit       MessageType = "recruit_unit"
	TypeCombineUnits      MessageType = "combine_units"
	TypeSplitUnit         MessageType = "split_unit"
	TypeCombineForces     MessageType = "combine_forces"
	TypeSplitForce        MessageType = "split_force"
	TypeDisbandUnit       MessageType = "disband_unit"
	TypeDisbandForce      MessageType = "disband_force"
	TypeSetForceActive    MessageType = "set_force_active"
	TypeMoveForce         MessageType = "move_force"
	TypeStopForce         MessageType = "stop_force"
	TypeActionResult      MessageType = "action_result"
)

// Administrative message types
const (
	TypeAdvanceTurn       MessageType = "advance_turn"
	TypeTurnAdvanced      MessageType = "turn_advanced"
	TypeTransferTerritory MessageType = "transfer_territory"
	TypeSetRelation       MessageType = "set_relation"
	TypeStartBattle       MessageType = "start_battle"
	TypeEndBattle         MessageType = "end_battle"
)

// System message types
const (
	TypeWelcome MessageType = "welcome"
	TypeError   MessageType = "error"
	TypePing    MessageType = "ping"
	TypePong    MessageType = "pong"
)

// Message is the envelope for all messages.
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewMessage creates a new message with the given type and payload.
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		ID:        uuid.New().String(),
		Timestamp: time.Now().UnixMilli(),
		Payload:   data,
	}, nil
}

// ParsePayload unmarshals the payload into the given type.
func (m *Message) ParsePayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// ErrorCode represents an error type.
type ErrorCode string

const (
	ErrCodeInvalidInput     ErrorCode = "invalid_input"
	ErrCodeNothingToDo      ErrorCode = "nothing_to_do"
	ErrCodeGameNotFound     ErrorCode = "game_not_found"
	ErrCodeNotAuthenticated ErrorCode = "not_authenticated"
	ErrCodeNoNation         ErrorCode = "no_nation"
	ErrCodeForbidden        ErrorCode = "forbidden"
	ErrCodeRateLimited      ErrorCode = "rate_limited"
	ErrCodeUnknownType      ErrorCode = "unknown_type"
	ErrCodeInternalError    ErrorCode = "internal_error"
)

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// RequestID echoes the ID of the message that failed.
	RequestID string `json:"request_id,omitempty"`
}
