package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentboard/agentboard/internal/events"
)

// ErrUnknownMessage is returned by Parse for frames it cannot classify.
var ErrUnknownMessage = errors.New("unknown message type")

// NewHandshake creates the handshake sent right after the transport opens.
func NewHandshake(clientName string) Message {
	return Message{Type: TypeHandshake, ClientName: clientName}
}

// NewSubscribe creates a topic subscription.
func NewSubscribe(topics []string) Message {
	return Message{Type: TypeSubscribe, Topics: topics}
}

// NewGetSnapshot asks the server for a full snapshot.
func NewGetSnapshot() Message {
	return Message{Type: TypeCommand, Command: CommandGetSnapshot}
}

// NewReplayEvents asks the server for every event after sinceSeq.
func NewReplayEvents(sinceSeq int64) Message {
	return Message{
		Type:    TypeCommand,
		Command: CommandReplayEvents,
		Data:    &CommandData{SinceSeq: &sinceSeq},
	}
}

// NewPing creates a heartbeat.
func NewPing() Message {
	return Message{Type: TypePing}
}

// Parse classifies an inbound frame. Frames with an event_type field are
// raw event envelopes; everything else is dispatched on type.
func Parse(data []byte) (Frame, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing frame: %w", err)
	}

	if h.EventType != "" {
		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("parsing event envelope: %w", err)
		}
		return Event{Envelope: env}, nil
	}

	switch h.Type {
	case TypeHandshakeAck:
		var f HandshakeAck
		return decode(data, &f)
	case TypeSubscribeAck:
		var f SubscribeAck
		return decode(data, &f)
	case TypePong:
		return Pong{}, nil
	case TypeError:
		return parseError(data)
	case TypeSnapshot:
		var f Snapshot
		return decode(data, &f)
	case TypeReplay:
		var f Replay
		return decode(data, &f)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, h.Type)
}

func decode[F Frame](data []byte, f *F) (Frame, error) {
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", (*f).FrameType(), err)
	}
	return *f, nil
}

// parseError accepts the code as either a string or a number.
func parseError(data []byte) (Frame, error) {
	var raw struct {
		Error string          `json:"error"`
		Code  json.RawMessage `json:"code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing error: %w", err)
	}
	f := Error{Message: raw.Error}
	code := bytes.TrimSpace(raw.Code)
	switch {
	case len(code) == 0 || bytes.Equal(code, []byte("null")):
	case code[0] == '"':
		if err := json.Unmarshal(code, &f.Code); err != nil {
			return nil, fmt.Errorf("parsing error code: %w", err)
		}
	default:
		f.Code = string(code)
	}
	return f, nil
}
