package server

import (
	"encoding/json"
	"time"

	"github.com/lox/pokerface/internal/game"
	"github.com/lox/pokerface/internal/store"
	"github.com/lox/pokerface/internal/table"
)

// MessageType identifies a websocket message
type MessageType string

// Server to client messages carry the event type of the wrapped event, or
// one of these.
const (
	MessageTypeState MessageType = "state"
	MessageTypeError MessageType = "error"

	// Client to server
	MessageTypeAction MessageType = "action"
	MessageTypeExit   MessageType = "exit"
)

// Message is the envelope of every websocket message
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// EventMessage wraps a table event
func EventMessage(ev table.Event) (*Message, error) {
	return NewMessage(MessageType(ev.EventType()), ev)
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ActionData is sent by a seated client to act
type ActionData struct {
	Action game.ActionKind `json:"action"`
	Amount int             `json:"amount,omitempty"`
}

// HTTP bodies

type JoinRequest struct {
	Name string `json:"name"`
}

type ActionRequest struct {
	PlayerID string          `json:"player_id"`
	Action   game.ActionKind `json:"action"`
	Amount   int             `json:"amount,omitempty"`
}

type PlayerRequest struct {
	PlayerID string `json:"player_id"`
}

// ExitRequest leaves a table. SessionID is the table id.
type ExitRequest struct {
	SessionID int    `json:"session_id"`
	PlayerID  string `json:"player_id"`
}

// EventsResponse lists the events produced by a request
type EventsResponse struct {
	Events []EventEnvelope `json:"events"`
}

type EventEnvelope struct {
	Type game.EventType `json:"type"`
	Data table.Event    `json:"data"`
}

// TableDetail is a table record and, when it has players, its live state
type TableDetail struct {
	store.TableRecord
	Session *table.View `json:"session,omitempty"`
}

func envelopes(events []table.Event) EventsResponse {
	out := EventsResponse{Events: make([]EventEnvelope, 0, len(events))}
	for _, ev := range events {
		out.Events = append(out.Events, EventEnvelope{Type: ev.EventType(), Data: ev})
	}
	return out
}
