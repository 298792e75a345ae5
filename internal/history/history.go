// Package history keeps one JSONL record per dispatch so operators can see
// what ran, with which options, and how it ended.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/StrategyComplex/congress-thetownhall/internal/jsonl"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is a single dispatch.
type Run struct {
	RunID     string         `json:"run_id"`
	Task      string         `json:"task"`
	DataType  string         `json:"data_type,omitempty"`
	Source    string         `json:"source,omitempty"`
	Patch     string         `json:"patch,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration { return r.EndedAt.Sub(r.StartedAt) }

// Recorder appends runs to a history file. A zero Recorder records nothing.
type Recorder struct {
	Path string
}

// Record stores run, assigning a RunID when it has none.
func (r *Recorder) Record(run *Run) error {
	if r == nil || r.Path == "" {
		return nil
	}
	if run.RunID == "" {
		run.RunID = generateRunID(run)
	}
	return jsonl.Append(r.Path, run)
}

// Recent returns up to limit runs, most recent first. Runs are appended as
// they end, so the newest are at the end of the file.
func (r *Recorder) Recent(limit int) ([]Run, error) {
	runs, err := jsonl.Tail[Run](r.Path, limit)
	if err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].EndedAt.After(runs[j].EndedAt)
	})
	return runs, nil
}

// Format renders runs as a table.
func Format(runs []Run) string {
	var b strings.Builder

	if len(runs) == 0 {
		fmt.Fprintf(&b, "No runs recorded yet.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-12s  %-20s  %-18s  %-9s  %8s  %s\n", "Run ID", "Started", "Task", "Status", "Duration", "Patch")
	fmt.Fprintf(&b, "%-12s  %-20s  %-18s  %-9s  %8s  %s\n", "──────", "───────", "────", "──────", "────────", "─────")
	for _, r := range runs {
		id := r.RunID
		if len(id) > 12 {
			id = id[:12]
		}
		fmt.Fprintf(&b, "%-12s  %-20s  %-18s  %-9s  %8s  %s\n",
			id, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Task, r.Status,
			r.Duration().Round(time.Millisecond), r.Patch)
		if r.Error != "" {
			fmt.Fprintf(&b, "              error: %s\n", r.Error)
		}
	}
	return b.String()
}

func generateRunID(run *Run) string {
	data := fmt.Sprintf("%s:%s:%d", run.Task, run.Patch, run.StartedAt.UnixNano())
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:8])
}
