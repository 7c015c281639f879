// Package transfer implements the per-host transfer manager: the I/O side
// of a pair, pipelining chunk transport against the paired encoder's
// compute while bounding in-flight work to one encoding plus one staged
// reserve.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mistvane/distrans/internal/coreerrors"
	"github.com/mistvane/distrans/internal/hostpool"
	"github.com/mistvane/distrans/internal/model"
	"github.com/mistvane/distrans/internal/queue"
	"github.com/mistvane/distrans/internal/remote"
	"github.com/mistvane/distrans/internal/report"
	"github.com/mistvane/distrans/pkg/bytesize"
)

// ProgressTracker receives chunk-completion and host-error notifications as
// a manager processes its host's share of work. A nil Tracker on Manager
// disables reporting entirely; *statusapi.Tracker satisfies this without
// this package needing to import statusapi.
type ProgressTracker interface {
	RecordChunkDone(host string)
	RecordHostError(host string, err error)
}

// StagedChunk is one chunk whose source bytes are already resident on the
// host, waiting in the handoff slot for the paired encoder to claim it.
type StagedChunk struct {
	Chunk     model.Chunk
	RemoteIn  string
	RemoteOut string
}

// Slot is the single-element rendezvous between a manager and its encoder:
// Staged carries a chunk from manager to encoder, Done reports a chunk
// index back once the encoder has finished it. Both are unbuffered so a
// send only succeeds once the other side is ready, which is what keeps
// in-flight work bounded to one staged plus one encoding.
type Slot struct {
	Staged chan StagedChunk
	Done   chan int
}

// NewSlot builds an empty handoff slot for one pair.
func NewSlot() *Slot {
	return &Slot{
		Staged: make(chan StagedChunk),
		Done:   make(chan int),
	}
}

// Manager owns one host's remote temp directory and the bidirectional byte
// movement between local disk and that host.
type Manager struct {
	Host        hostpool.Host
	Queue       *queue.ChunkQueue
	Slot        *Slot
	Shell       remote.Shell
	Copier      remote.Copier
	LocalOutDir string
	Logger      *slog.Logger
	// Tracker, if set, is notified as chunks complete for the local status
	// endpoint. Optional.
	Tracker ProgressTracker

	pending map[int]pendingChunk // chunk index -> staged remote path + stage time, awaiting pull-back

	// Assignments accumulates one entry per pulled-back chunk, read by the
	// supervisor after Run returns to build the run report.
	Assignments []report.Assignment
}

type pendingChunk struct {
	remoteOut string
	stagedAt  time.Time
}

// Run drives the manager's lifecycle to completion: init, steady-state
// pipelining, and shutdown. It returns every EncodedChunk this pair
// produced, or the first fatal error encountered.
func (m *Manager) Run(ctx context.Context) ([]model.EncodedChunk, error) {
	logger := m.logger()
	m.pending = make(map[int]pendingChunk)

	if err := m.setup(ctx); err != nil {
		return nil, err
	}
	defer m.teardown(ctx)

	var encoded []model.EncodedChunk
	var staged *StagedChunk
	var outstanding bool
	drained := false

	for {
		if staged == nil && !drained {
			c, ok := m.Queue.Take()
			if !ok {
				drained = true
			} else {
				sc, err := m.pushChunk(ctx, c)
				if err != nil {
					return encoded, err
				}
				staged = sc
			}
		}

		if drained && staged == nil && !outstanding {
			close(m.Slot.Staged)
			logger.Info("manager drained", slog.String("host", m.Host.Name), slog.Int("chunks", len(encoded)))
			return encoded, nil
		}

		var stageCh chan<- StagedChunk
		var stageVal StagedChunk
		if staged != nil {
			stageCh = m.Slot.Staged
			stageVal = *staged
		}

		select {
		case stageCh <- stageVal:
			outstanding = true
			staged = nil
		case idx := <-m.Slot.Done:
			ec, err := m.pullChunk(ctx, idx)
			if err != nil {
				return encoded, err
			}
			encoded = append(encoded, ec)
			outstanding = false
		case <-ctx.Done():
			return encoded, coreerrors.ErrAborted
		}
	}
}

func (m *Manager) setup(ctx context.Context) error {
	if _, _, err := m.Shell.Run(ctx, m.Host.Name, "mkdir -p "+m.Host.RemoteTmpDir); err != nil {
		hostErr := coreerrors.NewHostError(m.Host.Name, "remote setup", fmt.Errorf("%w: %v", coreerrors.ErrHostSetupFailed, err))
		m.recordHostError(hostErr)
		return hostErr
	}
	return nil
}

func (m *Manager) teardown(ctx context.Context) {
	if m.Host.KeepTmp {
		return
	}
	if _, _, err := m.Shell.Run(ctx, m.Host.Name, "rm -rf "+m.Host.RemoteTmpDir); err != nil {
		// Cleanup failures are logged, not fatal.
		m.logger().Warn("failed removing remote temp directory",
			slog.String("host", m.Host.Name), slog.String("error", err.Error()))
	}
}

func (m *Manager) pushChunk(ctx context.Context, c model.Chunk) (*StagedChunk, error) {
	remoteIn := filepath.Join(m.Host.RemoteTmpDir, c.Name)
	remoteOut := filepath.Join(m.Host.RemoteTmpDir, "enc_"+c.Name)

	if err := m.Copier.Push(ctx, c.LocalPath, m.Host.Name, remoteIn); err != nil {
		chunkErr := coreerrors.NewChunkError(m.Host.Name, c.Index, "push",
			fmt.Errorf("%w: %v", coreerrors.ErrTransferFailed, err))
		m.recordHostError(chunkErr)
		return nil, chunkErr
	}

	m.pending[c.Index] = pendingChunk{remoteOut: remoteOut, stagedAt: time.Now()}
	m.logger().Debug("staged chunk",
		slog.String("host", m.Host.Name), slog.Int("chunk", c.Index),
		slog.String("size", bytesize.Format(bytesize.Size(fileSizeOrZero(c.LocalPath)))))

	return &StagedChunk{Chunk: c, RemoteIn: remoteIn, RemoteOut: remoteOut}, nil
}

func (m *Manager) pullChunk(ctx context.Context, index int) (model.EncodedChunk, error) {
	staged, ok := m.pending[index]
	if !ok {
		chunkErr := coreerrors.NewChunkError(m.Host.Name, index, "pull",
			fmt.Errorf("no staged remote path recorded for chunk %d", index))
		m.recordHostError(chunkErr)
		return model.EncodedChunk{}, chunkErr
	}
	delete(m.pending, index)

	localOut := filepath.Join(m.LocalOutDir, fmt.Sprintf("enc_%04d%s", index, filepath.Ext(staged.remoteOut)))
	if err := m.Copier.Pull(ctx, m.Host.Name, staged.remoteOut, localOut); err != nil {
		chunkErr := coreerrors.NewChunkError(m.Host.Name, index, "pull",
			fmt.Errorf("%w: %v", coreerrors.ErrTransferFailed, err))
		m.recordHostError(chunkErr)
		return model.EncodedChunk{}, chunkErr
	}

	m.Assignments = append(m.Assignments, report.NewAssignment(index, m.Host.Name, time.Since(staged.stagedAt)))
	if m.Tracker != nil {
		m.Tracker.RecordChunkDone(m.Host.Name)
	}

	m.logger().Info("pulled encoded chunk", slog.String("host", m.Host.Name), slog.Int("chunk", index))
	return model.EncodedChunk{Index: index, LocalPath: localOut}, nil
}

func (m *Manager) recordHostError(err error) {
	if m.Tracker != nil {
		m.Tracker.RecordHostError(m.Host.Name, err)
	}
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func fileSizeOrZero(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
