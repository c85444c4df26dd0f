// Package types defines the JSON envelopes exchanged over the websocket.
package types

import (
	"github.com/escala365/arena-backend/internal/arena"
	"github.com/escala365/arena-backend/internal/bus"
)

// ClientMessage is a client -> server envelope. Which types a connection
// may send depends on its role: players submit answers and relay resolve
// signals, the moderator console drives the round state machine.
type ClientMessage struct {
	Type           string `json:"type"`
	QuestionID     string `json:"question_id,omitempty"`
	Option         string `json:"option,omitempty"`
	SeenQuestionID string `json:"seen_question_id,omitempty"`
	Stakes         int    `json:"stakes,omitempty"`
	Show           bool   `json:"show,omitempty"`
	Seconds        int    `json:"seconds,omitempty"`
	GladiatorA     string `json:"gladiator_a,omitempty"`
	GladiatorB     string `json:"gladiator_b,omitempty"`
	Confirm        bool   `json:"confirm,omitempty"`
}

// ServerMessage is a server -> client envelope.
//
// StateSnapshot carries the durable feed (authoritative, at-least-once);
// Broadcast carries the ephemeral bus (best effort, may be missing).
// Clients must treat absent broadcasts as normal and fall back to the
// snapshot stream or a session poll.
type ServerMessage struct {
	Type     string         `json:"type"` // "StateSnapshot" | "Broadcast" | "Error"
	Revision int64          `json:"revision,omitempty"`
	State    *arena.Session `json:"state,omitempty"`
	Event    *bus.Event     `json:"event,omitempty"`
	Error    string         `json:"error,omitempty"`
}
