// Package runtime assembles one dashboard: the agent and issue stores, the
// activity log, the event processor and, when online, the connection that
// feeds it. Each Runtime is independent; tests build as many as they need.
package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/agentboard/agentboard/internal/activity"
	"github.com/agentboard/agentboard/internal/connection"
	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/journal"
	"github.com/agentboard/agentboard/internal/processor"
	"github.com/agentboard/agentboard/internal/store"
)

// replayTimeout bounds the replay request sent when a gap is detected.
const replayTimeout = 5 * time.Second

// Options configures a Runtime.
type Options struct {
	// Connection is used by New. URL is required there; Logger and
	// Activity are filled in by the runtime.
	Connection connection.Options

	MaxActivity  int
	MaxProcessed int

	// Journal, when set, receives every envelope that is not a duplicate.
	Journal *journal.Journal

	// CheckpointPath, when set, is where the board is saved each time the
	// connection drops and on Close.
	CheckpointPath string

	Logger *slog.Logger
}

// Runtime owns the state of one dashboard.
type Runtime struct {
	Agents    *store.AgentStore
	Issues    *store.IssueStore
	Activity  *activity.Log
	Processor *processor.Processor

	// Conn is nil for an offline runtime.
	Conn *connection.Manager

	journal        *journal.Journal
	checkpointPath string
	url            string
	logger         *slog.Logger

	mu         sync.Mutex
	journalErr error
}

// New builds an online runtime. The connection is not opened until Run or
// Conn.Connect is called.
func New(opts Options) *Runtime {
	r := newRuntime(opts)

	copts := opts.Connection
	copts.Logger = r.logger
	copts.Activity = r.Activity
	r.url = copts.URL
	r.Conn = connection.NewManager(copts, r)

	r.Processor = processor.New(r.Agents, r.Issues, r.Activity, processor.Options{
		Logger:    r.logger,
		Sequencer: r.Conn,
	})
	r.Processor.SetGapHandler(r.requestReplay)
	r.Conn.OnStatusChange(r.statusChanged)
	r.wire()
	return r
}

// NewOffline builds a runtime with no connection, for replaying a journal
// or applying events directly.
func NewOffline(opts Options) *Runtime {
	r := newRuntime(opts)
	r.Processor = processor.New(r.Agents, r.Issues, r.Activity, processor.Options{
		Logger: r.logger,
	})
	r.wire()
	return r
}

func newRuntime(opts Options) *Runtime {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runtime{
		Agents:         store.NewAgentStore(),
		Issues:         store.NewIssueStore(),
		Activity:       activity.NewLog(opts.MaxActivity, opts.MaxProcessed),
		journal:        opts.Journal,
		checkpointPath: opts.CheckpointPath,
		logger:         logger,
	}
}

func (r *Runtime) wire() {
	if r.journal != nil {
		r.Processor.OnProcessed(r.record)
	}
}

// HandleEvent implements connection.Handler.
func (r *Runtime) HandleEvent(env events.Envelope) {
	r.Processor.ProcessEvent(env)
}

// HandleSnapshot implements connection.Handler.
func (r *Runtime) HandleSnapshot(snap events.Snapshot) {
	r.Processor.ApplySnapshot(snap)
}

// HandleReplay implements connection.Handler. Replayed events are applied
// after whatever has already been received; duplicates are dropped.
func (r *Runtime) HandleReplay(envs []events.Envelope, currentSeq int64) {
	r.Processor.ProcessBatch(envs)
	r.Processor.Sequencer().AdvanceSeq(currentSeq)
	r.Activity.Addf(activity.KindInfo, "Replayed %d events", len(envs))
}

// Replay applies envelopes in order, as read from a journal.
func (r *Runtime) Replay(envs []events.Envelope) []processor.Outcome {
	return r.Processor.ProcessBatch(envs)
}

// Run connects and blocks until ctx is done, then disconnects and writes
// the checkpoint. A failed first dial is not fatal: the connection keeps
// retrying on its own schedule.
func (r *Runtime) Run(ctx context.Context) error {
	if r.Conn == nil {
		return errors.New("runtime has no connection")
	}
	if err := r.Conn.Connect(ctx); err != nil {
		r.logger.Warn("initial connect failed", "url", r.url, "err", err)
	}
	<-ctx.Done()
	return r.Close()
}

// Close disconnects and saves a final checkpoint.
func (r *Runtime) Close() error {
	if r.Conn != nil {
		r.Conn.Disconnect()
	}
	return r.SaveCheckpoint()
}

// Export returns the board as a snapshot payload.
func (r *Runtime) Export() events.Snapshot {
	return events.Snapshot{
		Agents:     r.Agents.List(),
		Issues:     r.Issues.List(),
		CurrentSeq: r.Processor.Sequencer().CurrentSeq(),
	}
}

// SaveCheckpoint writes the board to the checkpoint path, if one is set.
func (r *Runtime) SaveCheckpoint() error {
	if r.checkpointPath == "" {
		return nil
	}
	return journal.SaveCheckpoint(r.checkpointPath, journal.Checkpoint{
		URL:      r.url,
		Snapshot: r.Export(),
	})
}

// JournalErr returns the first journal write failure, if any.
func (r *Runtime) JournalErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.journalErr
}

func (r *Runtime) record(env events.Envelope, out processor.Outcome) {
	if out == processor.Duplicate {
		return
	}
	if err := r.journal.Append(env); err != nil {
		r.mu.Lock()
		first := r.journalErr == nil
		if first {
			r.journalErr = err
		}
		r.mu.Unlock()
		if first {
			r.Activity.Addf(activity.KindWarning, "Journal write failed: %v", err)
		}
		r.logger.Warn("journal append failed", "event_id", env.EventID, "err", err)
	}
}

func (r *Runtime) requestReplay(current, received int64) {
	ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)
	defer cancel()
	if err := r.Conn.RequestReplay(ctx, current); err != nil {
		r.logger.Warn("replay request failed", "since_seq", current, "err", err)
		return
	}
	r.logger.Info("replay requested", "since_seq", current, "received", received)
}

func (r *Runtime) statusChanged(s connection.Status) {
	if s != connection.StatusDisconnected {
		return
	}
	if err := r.SaveCheckpoint(); err != nil {
		r.logger.Warn("checkpoint failed", "path", r.checkpointPath, "err", err)
	}
}
