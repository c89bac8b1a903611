// Package processor is the single entry point for the event stream. For each
// envelope it checks the sequence watermark for gaps, drops redeliveries,
// records the event in the activity log, runs it through the reducer, and
// projects whatever changed into the agent and issue stores.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/agentboard/agentboard/internal/activity"
	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/state"
	"github.com/agentboard/agentboard/internal/store"
)

// Outcome is what ProcessEvent did with an envelope.
type Outcome int

const (
	Applied   Outcome = iota // state advanced
	Duplicate                // event id already processed
	Rejected                 // decode failure, invalid transition or handler panic
	Ignored                  // unknown event type
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Duplicate:
		return "duplicate"
	case Rejected:
		return "rejected"
	case Ignored:
		return "ignored"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Options configures a Processor. Zero values select defaults.
type Options struct {
	Logger    *slog.Logger
	Sequencer Sequencer
	Handlers  *HandlerRegistry
}

// Processor applies events to the stores. It is safe for concurrent use,
// but events are expected from a single delivery goroutine.
type Processor struct {
	mu       sync.Mutex
	snap     *state.Snapshot
	agents   *store.AgentStore
	issues   *store.IssueStore
	activity *activity.Log
	seq      Sequencer
	handlers *HandlerRegistry
	logger   *slog.Logger

	onGap     func(current, received int64)
	observers []func(events.Envelope, Outcome)
}

// New creates a processor writing to the given stores and activity log.
func New(agents *store.AgentStore, issues *store.IssueStore, log *activity.Log, opts Options) *Processor {
	p := &Processor{
		snap:     state.Empty(),
		agents:   agents,
		issues:   issues,
		activity: log,
		seq:      opts.Sequencer,
		handlers: opts.Handlers,
		logger:   opts.Logger,
	}
	if p.seq == nil {
		p.seq = NewSequence(0)
	}
	if p.handlers == nil {
		p.handlers = DefaultHandlers()
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p
}

// SetGapHandler installs the callback invoked with (currentSeq, receivedSeq)
// when an event arrives ahead of the watermark. It runs after the event has
// been processed and may call back into the processor.
func (p *Processor) SetGapHandler(fn func(current, received int64)) {
	p.mu.Lock()
	p.onGap = fn
	p.mu.Unlock()
}

// OnProcessed registers an observer called with every envelope and its outcome.
func (p *Processor) OnProcessed(fn func(events.Envelope, Outcome)) {
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

// Snapshot returns the current state snapshot.
func (p *Processor) Snapshot() *state.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Sequencer returns the watermark the processor advances.
func (p *Processor) Sequencer() Sequencer {
	return p.seq
}

type gap struct {
	current, received int64
}

// ProcessEvent applies one envelope. A failing event is logged and recorded
// in the activity log; it never prevents later events from applying.
func (p *Processor) ProcessEvent(env events.Envelope) Outcome {
	p.mu.Lock()
	out, g := p.process(env)
	onGap := p.onGap
	observers := p.observers
	p.mu.Unlock()

	if g != nil && onGap != nil {
		onGap(g.current, g.received)
	}
	for _, fn := range observers {
		fn(env, out)
	}
	return out
}

// ProcessBatch applies envelopes in the order given, as for a replay.
func (p *Processor) ProcessBatch(envs []events.Envelope) []Outcome {
	outs := make([]Outcome, 0, len(envs))
	for _, env := range envs {
		outs = append(outs, p.ProcessEvent(env))
	}
	return outs
}

// ApplySnapshot resynchronises from a full server snapshot. The snapshot
// replaces both stores and raises the watermark to its sequence number.
func (p *Processor) ApplySnapshot(snap events.Snapshot) Outcome {
	env, err := events.New("", snap.CurrentSeq, snap)
	if err != nil {
		p.mu.Lock()
		p.reject(events.Envelope{EventType: events.TypeSystemSnapshot}, err)
		p.mu.Unlock()
		return Rejected
	}
	env.EventID = "snapshot-" + uuid.NewString()

	p.mu.Lock()
	p.seq.AdvanceSeq(snap.CurrentSeq)
	p.activity.ProcessEvent(env)
	out := p.dispatch(env)
	observers := p.observers
	p.mu.Unlock()

	for _, fn := range observers {
		fn(env, out)
	}
	return out
}

func (p *Processor) process(env events.Envelope) (Outcome, *gap) {
	var g *gap
	if cur := p.seq.CurrentSeq(); cur != 0 && env.Seq > cur+1 {
		expected := cur + 1
		missing := env.Seq - expected
		p.activity.Add(activity.Item{
			Kind:    activity.KindWarning,
			Message: fmt.Sprintf("Sequence gap detected: missing %d events (expected %d, got %d)", missing, expected, env.Seq),
		})
		p.logger.Warn("sequence gap", "expected", expected, "got", env.Seq, "missing", missing)
		g = &gap{current: cur, received: env.Seq}
	}
	p.seq.AdvanceSeq(env.Seq)

	if env.EventID == "" {
		p.reject(env, errors.New("event has no event_id"))
		return Rejected, g
	}
	if !p.activity.ProcessEvent(env) {
		p.logger.Debug("duplicate event", "event_id", env.EventID, "type", env.EventType)
		return Duplicate, g
	}
	return p.dispatch(env), g
}

func (p *Processor) dispatch(env events.Envelope) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.reject(env, fmt.Errorf("handler panic: %v", r))
			out = Rejected
		}
	}()

	if !p.handlers.CanHandle(env.EventType) {
		p.logger.Warn("unknown event type, ignoring", "event_id", env.EventID, "type", env.EventType)
		if next, err := state.Apply(p.snap, env); err == nil {
			p.snap = next
		}
		return Ignored
	}

	next, err := p.handlers.Handle(p.snap, env)
	if err != nil {
		p.reject(env, err)
		return Rejected
	}
	p.project(env, next)

	switch env.EventType {
	case events.TypeSystemAlert:
		p.logger.Warn("system alert", "event_id", env.EventID, "payload", string(env.Payload))
	case events.TypeSystemError:
		p.logger.Error("system error", "event_id", env.EventID, "payload", string(env.Payload))
	default:
		p.logger.Debug("event applied", "event_id", env.EventID, "type", env.EventType, "seq", env.Seq)
	}
	return Applied
}

// project makes the stores match next.
func (p *Processor) project(env events.Envelope, next *state.Snapshot) {
	prev := p.snap
	if env.EventType == events.TypeSystemSnapshot {
		// A snapshot supersedes all history before it.
		p.snap = next.Compact()
		p.agents.SetAll(next.Agents())
		p.issues.SetAll(next.Issues())
		return
	}
	p.snap = next

	c := next.Diff(prev)
	p.agents.UpsertMany(c.Agents)
	p.agents.Remove(c.RemovedAgents...)
	p.issues.UpsertMany(c.Issues)
	p.issues.Remove(c.RemovedIssues...)
}

func (p *Processor) reject(env events.Envelope, err error) {
	level := slog.LevelError
	if state.IsStateError(err) {
		level = slog.LevelWarn
	}
	p.logger.Log(context.Background(), level, "event rejected", "event_id", env.EventID, "type", env.EventType, "err", err)
	p.activity.Add(activity.Item{
		Kind:      activity.KindError,
		Message:   fmt.Sprintf("Failed to apply %s: %v", env.EventType, err),
		EventType: env.EventType,
		AgentID:   env.AgentID,
		IssueID:   env.IssueID,
	})
}
