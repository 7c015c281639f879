package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mistvane/distrans/internal/hostpool"
	"github.com/mistvane/distrans/internal/media"
	"github.com/mistvane/distrans/internal/model"
	"github.com/mistvane/distrans/internal/queue"
	"github.com/mistvane/distrans/internal/report"
)

type recordingShell struct {
	mu       sync.Mutex
	commands []string
	failHost string
}

func (r *recordingShell) Run(_ context.Context, host, command string) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, host+": "+command)
	if r.failHost != "" && host == r.failHost {
		return "", "boom", errors.New("simulated remote failure")
	}
	return "", "", nil
}

type noopCopier struct{}

func (noopCopier) Push(context.Context, string, string, string) error { return nil }
func (noopCopier) Pull(context.Context, string, string, string) error { return nil }

func makeChunks(n int) []model.Chunk {
	var chunks []model.Chunk
	for i := 0; i < n; i++ {
		chunks = append(chunks, model.Chunk{Index: i, LocalPath: fmt.Sprintf("/tmp/chunk_%04d.mp4", i), Name: fmt.Sprintf("chunk_%04d.mp4", i)})
	}
	return chunks
}

func TestSupervisor_Run_DistributesAcrossHostsAndSortsResult(t *testing.T) {
	q := queue.New(makeChunks(10))
	shell := &recordingShell{}
	hosts := hostpool.FromNames([]string{"worker1", "worker2", "worker3"}, false)

	s := &Supervisor{
		Queue:       q,
		Hosts:       hosts,
		Shell:       shell,
		Copier:      noopCopier{},
		Tool:        &media.Tool{},
		LocalOutDir: t.TempDir(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	encoded, err := s.Run(ctx)
	require.NoError(t, err)
	require.Len(t, encoded, 10)

	for i, ec := range encoded {
		assert.Equal(t, i, ec.Index, "results must be sorted by chunk index")
	}
}

func TestSupervisor_Run_NoHostsIsAnError(t *testing.T) {
	s := &Supervisor{
		Queue:       queue.New(makeChunks(1)),
		Hosts:       nil,
		Shell:       &recordingShell{},
		Copier:      noopCopier{},
		Tool:        &media.Tool{},
		LocalOutDir: t.TempDir(),
	}
	_, err := s.Run(context.Background())
	require.Error(t, err)
}

func TestSupervisor_Run_WritesReportOnSuccess(t *testing.T) {
	q := queue.New(makeChunks(6))
	shell := &recordingShell{}
	hosts := hostpool.FromNames([]string{"worker1", "worker2"}, false)
	reportPath := filepath.Join(t.TempDir(), "report.yaml")

	s := &Supervisor{
		Queue:       q,
		Hosts:       hosts,
		Shell:       shell,
		Copier:      noopCopier{},
		Tool:        &media.Tool{},
		LocalOutDir: t.TempDir(),
		Input:       "in.mp4",
		Output:      "out.mp4",
		ReportPath:  reportPath,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.Run(ctx)
	require.NoError(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, yaml.Unmarshal(data, &rep))
	assert.Equal(t, "in.mp4", rep.Input)
	assert.Equal(t, "out.mp4", rep.Output)
	assert.False(t, rep.Aborted)
	assert.Empty(t, rep.Error)
	assert.Len(t, rep.Assignments, 6)
	seen := make(map[int]bool)
	for _, a := range rep.Assignments {
		assert.Contains(t, []string{"worker1", "worker2"}, a.Host)
		assert.NotEmpty(t, a.Duration)
		seen[a.Index] = true
	}
	assert.Len(t, seen, 6)
}

func TestSupervisor_Run_WritesReportOnAbort(t *testing.T) {
	q := queue.New(makeChunks(10))
	shell := &recordingShell{failHost: "worker2"}
	hosts := hostpool.FromNames([]string{"worker1", "worker2"}, false)
	reportPath := filepath.Join(t.TempDir(), "report.yaml")

	s := &Supervisor{
		Queue:       q,
		Hosts:       hosts,
		Shell:       shell,
		Copier:      noopCopier{},
		Tool:        &media.Tool{},
		LocalOutDir: t.TempDir(),
		ReportPath:  reportPath,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.Run(ctx)
	require.Error(t, err)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, yaml.Unmarshal(data, &rep))
	assert.True(t, rep.Aborted)
	assert.NotEmpty(t, rep.Error)
}

func TestSupervisor_Run_AbortsAllPairsOnFatalError(t *testing.T) {
	q := queue.New(makeChunks(20))
	shell := &recordingShell{failHost: "worker2"}
	hosts := hostpool.FromNames([]string{"worker1", "worker2"}, false)

	s := &Supervisor{
		Queue:       q,
		Hosts:       hosts,
		Shell:       shell,
		Copier:      noopCopier{},
		Tool:        &media.Tool{},
		LocalOutDir: t.TempDir(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.Run(ctx)
	require.Error(t, err)
}
