package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/agentboard/agentboard/internal/events"
)

func TestMessages_WireFormat(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"handshake", NewHandshake("cli"), `{"type":"handshake","client_name":"cli"}`},
		{"subscribe", NewSubscribe([]string{"agents", "issues"}), `{"type":"subscribe","topics":["agents","issues"]}`},
		{"snapshot", NewGetSnapshot(), `{"type":"command","command":"get_snapshot"}`},
		{"replay", NewReplayEvents(0), `{"type":"command","command":"replay_events","data":{"since_seq":0}}`},
		{"replay since", NewReplayEvents(41), `{"type":"command","command":"replay_events","data":{"since_seq":41}}`},
		{"ping", NewPing(), `{"type":"ping"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got  %s\nwant %s", data, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  MessageType
	}{
		{"handshake ack", `{"type":"handshake_ack","client_id":"c-1"}`, TypeHandshakeAck},
		{"subscribe ack", `{"type":"subscribe_ack","subscribed":["agents"]}`, TypeSubscribeAck},
		{"pong", `{"type":"pong"}`, TypePong},
		{"error", `{"type":"error","error":"bad","code":"E_BAD"}`, TypeError},
		{"snapshot", `{"type":"snapshot","data":{"agents":[],"issues":[],"currentSeq":7}}`, TypeSnapshot},
		{"replay", `{"type":"replay","events":[],"current_seq":9}`, TypeReplay},
		{"event", `{"event_id":"e1","event_type":"system.alert","seq":3,"payload":{"message":"hi"}}`, TypeEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.frame))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if f.FrameType() != tt.want {
				t.Errorf("FrameType = %q, want %q", f.FrameType(), tt.want)
			}
		})
	}
}

func TestParse_Fields(t *testing.T) {
	f, _ := Parse([]byte(`{"type":"handshake_ack","client_id":"c-1"}`))
	if ack := f.(HandshakeAck); ack.ClientID != "c-1" {
		t.Errorf("ClientID = %q", ack.ClientID)
	}

	f, _ = Parse([]byte(`{"type":"snapshot","data":{"agents":[{"id":"a1","name":"Toast","status":"idle"}],"issues":[],"currentSeq":7}}`))
	snap := f.(Snapshot)
	if snap.Data.CurrentSeq != 7 || len(snap.Data.Agents) != 1 || snap.Data.Agents[0].ID != "a1" {
		t.Errorf("snapshot = %+v", snap.Data)
	}

	f, _ = Parse([]byte(`{"type":"replay","events":[{"event_id":"e1","event_type":"system.alert","seq":4,"payload":{}}],"current_seq":9}`))
	rep := f.(Replay)
	if rep.CurrentSeq != 9 || len(rep.Events) != 1 || rep.Events[0].EventType != events.TypeSystemAlert {
		t.Errorf("replay = %+v", rep)
	}

	f, _ = Parse([]byte(`{"event_id":"e1","event_type":"issue.blocked","project_id":"p","issue_id":"i1","seq":3,"payload":{"reason":"r"}}`))
	ev := f.(Event)
	if ev.Envelope.EventID != "e1" || ev.Envelope.IssueID != "i1" || ev.Envelope.Seq != 3 {
		t.Errorf("envelope = %+v", ev.Envelope)
	}
}

func TestParse_ErrorCode(t *testing.T) {
	tests := []struct {
		frame string
		want  string
	}{
		{`{"type":"error","error":"bad","code":"E_BAD"}`, "E_BAD: bad"},
		{`{"type":"error","error":"bad","code":4001}`, "4001: bad"},
		{`{"type":"error","error":"bad"}`, "bad"},
	}
	for _, tt := range tests {
		f, err := Parse([]byte(tt.frame))
		if err != nil {
			t.Fatalf("Parse(%s): %v", tt.frame, err)
		}
		if got := f.(Error).Error(); got != tt.want {
			t.Errorf("Parse(%s).Error() = %q, want %q", tt.frame, got, tt.want)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed frame")
	}
	_, err := Parse([]byte(`{"type":"surprise"}`))
	if !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("err = %v, want ErrUnknownMessage", err)
	}
	if _, err := Parse([]byte(`{"type":"replay","events":"nope"}`)); err == nil {
		t.Error("expected error for mistyped replay")
	}
}
