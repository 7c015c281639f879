// Package encoder implements the per-host encoder: the compute side of a
// pair, claiming chunks staged by the paired transfer manager and driving
// their remote transcode.
package encoder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mistvane/distrans/internal/coreerrors"
	"github.com/mistvane/distrans/internal/hostpool"
	"github.com/mistvane/distrans/internal/media"
	"github.com/mistvane/distrans/internal/remote"
	"github.com/mistvane/distrans/internal/transfer"
)

// ProgressTracker receives a notification when a host's remote transcode
// fails. A nil Tracker on Worker disables reporting; *statusapi.Tracker
// satisfies this without this package needing to import statusapi.
type ProgressTracker interface {
	RecordHostError(host string, err error)
}

// Worker claims staged chunks for one host and transcodes them in place.
type Worker struct {
	Host   hostpool.Host
	Slot   *transfer.Slot
	Shell  remote.Shell
	Tool   *media.Tool
	Logger *slog.Logger
	// Tracker, if set, is notified of remote transcode failures for the
	// local status endpoint. Optional.
	Tracker ProgressTracker
}

// Run claims chunks from the handoff slot until the paired manager closes
// it, transcoding each in turn. It returns the first fatal error, or nil
// once the slot is drained and closed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case sc, ok := <-w.Slot.Staged:
			if !ok {
				return nil
			}
			if err := w.transcode(ctx, sc); err != nil {
				return err
			}
			select {
			case w.Slot.Done <- sc.Chunk.Index:
			case <-ctx.Done():
				return coreerrors.ErrAborted
			}
		case <-ctx.Done():
			return coreerrors.ErrAborted
		}
	}
}

func (w *Worker) transcode(ctx context.Context, sc transfer.StagedChunk) error {
	w.logger().Debug("transcoding chunk", slog.String("host", w.Host.Name), slog.Int("chunk", sc.Chunk.Index))

	if err := w.Tool.TranscodeChunk(ctx, w.Shell, w.Host.Name, sc.RemoteIn, sc.RemoteOut); err != nil {
		chunkErr := coreerrors.NewChunkError(w.Host.Name, sc.Chunk.Index, "encode",
			fmt.Errorf("%w: %v", coreerrors.ErrEncodeFailed, err))
		if w.Tracker != nil {
			w.Tracker.RecordHostError(w.Host.Name, chunkErr)
		}
		return chunkErr
	}
	return nil
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}
