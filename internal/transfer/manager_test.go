package transfer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mistvane/distrans/internal/hostpool"
	"github.com/mistvane/distrans/internal/model"
	"github.com/mistvane/distrans/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShell struct {
	mu   sync.Mutex
	runs []string
}

func (f *fakeShell) Run(_ context.Context, host, command string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, host+": "+command)
	return "", "", nil
}

type fakeCopier struct {
	mu    sync.Mutex
	pulls []string
}

func (f *fakeCopier) Push(context.Context, string, string, string) error { return nil }

func (f *fakeCopier) Pull(_ context.Context, host, remotePath, localPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls = append(f.pulls, remotePath)
	return nil
}

// stubEncoder plays the encoder side of the handoff slot: claim whatever the
// manager stages, pretend to transcode, and report the chunk done. It runs
// until the manager closes the staged channel.
func stubEncoder(slot *Slot) {
	for sc := range slot.Staged {
		slot.Done <- sc.Chunk.Index
	}
}

func TestManager_Run_ProcessesAllChunksInOrder(t *testing.T) {
	var chunks []model.Chunk
	for i := 0; i < 6; i++ {
		chunks = append(chunks, model.Chunk{Index: i, LocalPath: fmt.Sprintf("/tmp/chunk_%04d.mp4", i), Name: fmt.Sprintf("chunk_%04d.mp4", i)})
	}
	q := queue.New(chunks)
	slot := NewSlot()
	shell := &fakeShell{}
	copier := &fakeCopier{}

	m := &Manager{
		Host:        hostpool.Host{Name: "worker1", RemoteTmpDir: "distrans-abc"},
		Queue:       q,
		Slot:        slot,
		Shell:       shell,
		Copier:      copier,
		LocalOutDir: t.TempDir(),
	}

	go stubEncoder(slot)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	encoded, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, encoded, 6)

	seen := make(map[int]bool)
	for _, ec := range encoded {
		seen[ec.Index] = true
	}
	for i := 0; i < 6; i++ {
		assert.True(t, seen[i], "chunk %d not encoded", i)
	}
	for i, ec := range encoded {
		assert.Equal(t, i, ec.Index, "a single host returns chunks in the order it took them")
	}

	assert.Contains(t, shell.runs[0], "mkdir -p distrans-abc")
	assert.Contains(t, shell.runs[len(shell.runs)-1], "rm -rf distrans-abc")
}

func TestManager_Run_EmptyQueueStillSetsUpAndTearsDown(t *testing.T) {
	q := queue.New(nil)
	slot := NewSlot()
	shell := &fakeShell{}
	copier := &fakeCopier{}

	m := &Manager{
		Host:        hostpool.Host{Name: "worker1", RemoteTmpDir: "distrans-empty"},
		Queue:       q,
		Slot:        slot,
		Shell:       shell,
		Copier:      copier,
		LocalOutDir: t.TempDir(),
	}

	go stubEncoder(slot)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	encoded, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, encoded)
	assert.Len(t, shell.runs, 2) // mkdir, then rm -rf
}

func TestManager_Run_KeepTmpSkipsCleanup(t *testing.T) {
	q := queue.New(nil)
	slot := NewSlot()
	shell := &fakeShell{}
	copier := &fakeCopier{}

	m := &Manager{
		Host:        hostpool.Host{Name: "worker1", RemoteTmpDir: "distrans-kept", KeepTmp: true},
		Queue:       q,
		Slot:        slot,
		Shell:       shell,
		Copier:      copier,
		LocalOutDir: t.TempDir(),
	}

	go stubEncoder(slot)

	_, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, shell.runs, 1) // mkdir only, no rm -rf
}
