// Package protocol defines the control messages exchanged with the event
// source over the push channel.
//
// Client → server:
//   - handshake: identifies the client
//   - subscribe: selects topics
//   - command: get_snapshot or replay_events
//   - ping: heartbeat
//
// Server → client:
//   - handshake_ack, subscribe_ack, pong, error
//   - snapshot: full state dump
//   - replay: events after a sequence number
//   - raw event envelopes, recognised by their event_type field
package protocol

import (
	"github.com/agentboard/agentboard/internal/events"
)

// MessageType identifies a control message.
type MessageType string

// Client → server.
const (
	TypeHandshake MessageType = "handshake"
	TypeSubscribe MessageType = "subscribe"
	TypeCommand   MessageType = "command"
	TypePing      MessageType = "ping"
)

// Server → client.
const (
	TypeHandshakeAck MessageType = "handshake_ack"
	TypeSubscribeAck MessageType = "subscribe_ack"
	TypePong         MessageType = "pong"
	TypeError        MessageType = "error"
	TypeSnapshot     MessageType = "snapshot"
	TypeReplay       MessageType = "replay"

	// TypeEvent is not sent on the wire; Parse reports it for raw envelopes.
	TypeEvent MessageType = "event"
)

// Command names carried by TypeCommand messages.
const (
	CommandGetSnapshot  = "get_snapshot"
	CommandReplayEvents = "replay_events"
)

// Message is an outbound control message. Only the fields relevant to Type
// are set.
type Message struct {
	Type MessageType `json:"type"`

	// ClientName identifies the client in a handshake.
	ClientName string `json:"client_name,omitempty"`

	// Topics lists the subscription topics.
	Topics []string `json:"topics,omitempty"`

	// Command is get_snapshot or replay_events.
	Command string `json:"command,omitempty"`

	// Data carries command arguments.
	Data *CommandData `json:"data,omitempty"`
}

// CommandData holds command arguments.
type CommandData struct {
	SinceSeq *int64 `json:"since_seq,omitempty"`
}

// Frame is a parsed inbound message: one of HandshakeAck, SubscribeAck, Pong,
// Error, Snapshot, Replay or Event.
type Frame interface {
	FrameType() MessageType
}

// HandshakeAck confirms the handshake and assigns a client id.
type HandshakeAck struct {
	ClientID string `json:"client_id"`
}

// SubscribeAck lists the topics actually subscribed.
type SubscribeAck struct {
	Subscribed []string `json:"subscribed"`
}

// Pong answers a ping.
type Pong struct{}

// Error is a server-reported failure.
type Error struct {
	Message string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// Snapshot carries a full state dump.
type Snapshot struct {
	Data events.Snapshot `json:"data"`
}

// Replay carries the events after a requested sequence number.
type Replay struct {
	Events     []events.Envelope `json:"events"`
	CurrentSeq int64             `json:"current_seq"`
}

// Event is a raw event envelope pushed by the server.
type Event struct {
	Envelope events.Envelope
}

func (HandshakeAck) FrameType() MessageType { return TypeHandshakeAck }
func (SubscribeAck) FrameType() MessageType { return TypeSubscribeAck }
func (Pong) FrameType() MessageType         { return TypePong }
func (Error) FrameType() MessageType        { return TypeError }
func (Snapshot) FrameType() MessageType     { return TypeSnapshot }
func (Replay) FrameType() MessageType       { return TypeReplay }
func (Event) FrameType() MessageType        { return TypeEvent }

func (e Error) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// header is the discriminating subset of every inbound frame.
type header struct {
	Type      MessageType `json:"type"`
	EventType events.Type `json:"event_type"`
}
