// Package statusapi exposes a local, read-only HTTP endpoint reporting the
// progress of the run currently in flight. It is optional: a run started
// without --status-addr never constructs a Server.
package statusapi

import (
	"sort"
	"sync"
	"time"

	"github.com/mistvane/distrans/internal/queue"
)

// Phase names the run's current stage as reported at GET /status.
const (
	PhaseRunning  = "running"
	PhaseDraining = "draining"
	PhaseAborting = "aborting"
	PhaseDone     = "done"
)

// HostStatus is one host's most recently observed state.
type HostStatus struct {
	Host       string    `json:"host" doc:"Host identifier as given on the command line"`
	ChunksDone int       `json:"chunks_done" doc:"Chunks this host has finished encoding"`
	LastUpdate time.Time `json:"last_update" doc:"Time of the last status change for this host"`
	LastError  string    `json:"last_error,omitempty" doc:"Most recent error reported by this host, if any"`
}

// Snapshot is the point-in-time state served at GET /status.
type Snapshot struct {
	TotalChunks int          `json:"total_chunks" doc:"Total chunks the input was split into"`
	Completed   int          `json:"completed" doc:"Chunks encoded and pulled back so far, across all hosts"`
	Remaining   int          `json:"remaining" doc:"Chunks not yet taken from the shared queue"`
	Phase       string       `json:"phase" doc:"running, draining, aborting, or done"`
	Hosts       []HostStatus `json:"hosts" doc:"Per-host progress"`
	StartedAt   time.Time    `json:"started_at" doc:"When this run began"`
}

// Tracker is a concurrency-safe accumulator of run progress. The
// distribution engine calls its setters as work happens; the HTTP server
// calls Snapshot to render the current state.
type Tracker struct {
	mu        sync.Mutex
	total     int
	startedAt time.Time
	hosts     map[string]*HostStatus
	queue     *queue.ChunkQueue
	aborting  bool
}

// NewTracker creates a Tracker for a run splitting the input into total
// chunks and pulling from q. q may be nil in tests that don't care about
// the Remaining field.
func NewTracker(total int, q *queue.ChunkQueue) *Tracker {
	return &Tracker{
		total:     total,
		startedAt: time.Now(),
		hosts:     make(map[string]*HostStatus),
		queue:     q,
	}
}

// RecordChunkDone marks one more chunk completed by host.
func (t *Tracker) RecordChunkDone(host string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	hs := t.hostLocked(host)
	hs.ChunksDone++
	hs.LastUpdate = time.Now()
}

// RecordHostError records the most recent error a host reported. The
// transfer manager and encoder only report errors that are fatal to the
// host's pair.
func (t *Tracker) RecordHostError(host string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	hs := t.hostLocked(host)
	hs.LastUpdate = time.Now()
	if err != nil {
		hs.LastError = err.Error()
	}
}

func (t *Tracker) hostLocked(host string) *HostStatus {
	hs, ok := t.hosts[host]
	if !ok {
		hs = &HostStatus{Host: host}
		t.hosts[host] = hs
	}
	return hs
}

// MarkAborting records that a sibling host's fatal error is tearing the
// whole run down, so Snapshot reports "aborting" instead of "running" for
// the remainder of the run's life.
func (t *Tracker) MarkAborting() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.aborting = true
}

// Snapshot returns the current state of the run.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := 0
	if t.queue != nil {
		remaining = t.queue.Remaining()
	}

	snap := Snapshot{
		TotalChunks: t.total,
		Remaining:   remaining,
		StartedAt:   t.startedAt,
	}
	for _, hs := range t.hosts {
		snap.Completed += hs.ChunksDone
		snap.Hosts = append(snap.Hosts, *hs)
	}
	sort.Slice(snap.Hosts, func(i, j int) bool { return snap.Hosts[i].Host < snap.Hosts[j].Host })

	switch {
	case t.aborting:
		snap.Phase = PhaseAborting
	case snap.Completed >= t.total && t.total > 0:
		snap.Phase = PhaseDone
	case remaining == 0:
		snap.Phase = PhaseDraining
	default:
		snap.Phase = PhaseRunning
	}
	return snap
}
