// Package journal persists the event stream as JSON lines and keeps a
// snapshot checkpoint next to it, so a board can be rebuilt offline.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/agentboard/agentboard/internal/events"
)

// lockTimeout is how long Append waits for another process holding the journal.
const lockTimeout = 5 * time.Second

// maxLine bounds a single journal line; snapshots can be large.
const maxLine = 16 << 20

// Journal appends envelopes to a JSONL file. Appends are serialised within
// the process by a mutex and across processes by a lock file.
type Journal struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// Open prepares a journal at path, creating its directory.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	return &Journal{path: path, lock: flock.New(path + ".lock")}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Append writes envelopes to the end of the journal, one per line.
func (j *Journal) Append(envs ...events.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	var buf []byte
	for _, env := range envs {
		data, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshaling event %s: %w", env.EventID, err)
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := j.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquiring journal lock: %w", err)
	}
	if !locked {
		return errors.New("timeout waiting for journal lock")
	}
	defer func() { _ = j.lock.Unlock() }()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) //nolint:gosec // G302: journal holds non-sensitive board events
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("writing journal: %w", err)
	}
	return nil
}

// ReadResult is the content of a journal file.
type ReadResult struct {
	Events []events.Envelope

	// Skipped counts lines that were not valid envelopes, such as a line
	// torn by a crash mid-write.
	Skipped int
}

// Read loads every envelope from the journal at path, in file order.
func Read(path string) (ReadResult, error) {
	var res ReadResult

	f, err := os.Open(path)
	if err != nil {
		return res, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env events.Envelope
		if err := json.Unmarshal(line, &env); err != nil || env.EventID == "" {
			res.Skipped++
			continue
		}
		res.Events = append(res.Events, env)
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("reading journal: %w", err)
	}
	return res, nil
}
