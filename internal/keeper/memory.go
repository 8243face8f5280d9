package keeper

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
)

const maxRecords = 20

// CycleRecord captures what happened in a single keeper cycle.
type CycleRecord struct {
	Tick      uint64  `json:"tick"`
	Action    string  `json:"action"`
	Level     string  `json:"level"`
	Health    float64 `json:"health"`
	Orbiting  int     `json:"orbiting"`
	Rationale string  `json:"rationale,omitempty"`
}

// CycleMemory manages a ring of recent keeper cycle records, optionally
// persisted to a JSON file.
type CycleMemory struct {
	Records []CycleRecord `json:"records"`

	path string
}

// LoadMemory reads the memory file from disk. Returns empty memory if the
// file is missing or path is empty.
func LoadMemory(path string) *CycleMemory {
	mem := &CycleMemory{path: path}
	if path == "" {
		return mem
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("keeper memory unreadable, starting fresh", "error", err)
		}
		return mem
	}
	if err := json.Unmarshal(data, mem); err != nil {
		slog.Warn("keeper memory corrupted, starting fresh", "error", err)
		return &CycleMemory{path: path}
	}
	return mem
}

// Save writes the memory to disk. A memory without a path is not saved.
func (m *CycleMemory) Save() {
	if m.path == "" {
		return
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Error("failed to marshal keeper memory", "error", err)
		return
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		slog.Error("failed to write keeper memory", "error", err)
	}
}

// Record adds a cycle record, trimming to maxRecords.
func (m *CycleMemory) Record(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// CyclesSince returns how many cycles ago action was last taken, or a large
// number if it is not in memory. The newest record is 1 cycle ago.
func (m *CycleMemory) CyclesSince(action string) int {
	if m == nil {
		return maxRecords + 1
	}
	for i := len(m.Records) - 1; i >= 0; i-- {
		if m.Records[i].Action == action {
			return len(m.Records) - i
		}
	}
	return maxRecords + 1
}
