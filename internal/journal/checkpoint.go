package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/util"
)

// Checkpoint is the last known board state written to disk.
type Checkpoint struct {
	SavedAt  time.Time       `json:"savedAt"`
	URL      string          `json:"url,omitempty"`
	Snapshot events.Snapshot `json:"snapshot"`
}

// SaveCheckpoint atomically replaces the checkpoint at path.
func SaveCheckpoint(path string, cp Checkpoint) error {
	if cp.SavedAt.IsZero() {
		cp.SavedAt = time.Now().UTC()
	}
	if err := util.AtomicWriteJSON(path, cp); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads the checkpoint at path.
func LoadCheckpoint(path string) (Checkpoint, error) {
	var cp Checkpoint
	data, err := os.ReadFile(path)
	if err != nil {
		return cp, err
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return cp, fmt.Errorf("parsing checkpoint %s: %w", path, err)
	}
	return cp, nil
}
