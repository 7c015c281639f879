// Package dispatch wires the queue, host pool, and pairs together and
// supervises the run as a whole: one (transfer.Manager, encoder.Worker)
// pair per host, sharing a single chunk queue, torn down together on the
// first fatal error.
package dispatch

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mistvane/distrans/internal/coreerrors"
	"github.com/mistvane/distrans/internal/encoder"
	"github.com/mistvane/distrans/internal/hostpool"
	"github.com/mistvane/distrans/internal/media"
	"github.com/mistvane/distrans/internal/model"
	"github.com/mistvane/distrans/internal/queue"
	"github.com/mistvane/distrans/internal/remote"
	"github.com/mistvane/distrans/internal/report"
	"github.com/mistvane/distrans/internal/transfer"
)

// Tracker receives live progress updates as the run proceeds, for the
// local status endpoint. Both transfer.ProgressTracker and
// encoder.ProgressTracker are satisfied by *statusapi.Tracker; this
// package depends on neither statusapi package directly.
type Tracker interface {
	RecordChunkDone(host string)
	RecordHostError(host string, err error)
	MarkAborting()
}

// Supervisor owns the run's shared queue and the pool of hosts it fans work
// out to.
type Supervisor struct {
	Queue       *queue.ChunkQueue
	Hosts       []hostpool.Host
	Shell       remote.Shell
	Copier      remote.Copier
	Tool        *media.Tool
	LocalOutDir string
	Logger      *slog.Logger

	// Tracker, if set, is fed live progress for the --status-addr endpoint.
	// Optional.
	Tracker Tracker

	// Input, Output, and ReportPath describe the run report written on
	// completion. ReportPath == "" disables report writing.
	Input      string
	Output     string
	ReportPath string
}

// Run starts one pair per host and blocks until every pair has drained the
// queue, or until any pair reports a fatal error, in which case the
// remaining pairs are cancelled and the first error is returned.
//
// On success the returned chunks are sorted by index, ready for
// concatenation. Whether it succeeds or fails, Run writes the run report
// (if ReportPath is set) before returning.
func (s *Supervisor) Run(ctx context.Context) ([]model.EncodedChunk, error) {
	if len(s.Hosts) == 0 {
		return nil, coreerrors.ErrNoHosts
	}

	startedAt := time.Now()

	var transferTracker transfer.ProgressTracker
	var encoderTracker encoder.ProgressTracker
	if s.Tracker != nil {
		transferTracker = s.Tracker
		encoderTracker = s.Tracker
	}

	g, gctx := errgroup.WithContext(ctx)

	managers := make([]*transfer.Manager, len(s.Hosts))
	results := make([][]model.EncodedChunk, len(s.Hosts))
	for i, host := range s.Hosts {
		i, host := i, host
		slot := transfer.NewSlot()

		mgr := &transfer.Manager{
			Host:        host,
			Queue:       s.Queue,
			Slot:        slot,
			Shell:       s.Shell,
			Copier:      s.Copier,
			LocalOutDir: s.LocalOutDir,
			Logger:      s.logger().With(slog.String("component", "transfer"), slog.String("host", host.Name)),
			Tracker:     transferTracker,
		}
		enc := &encoder.Worker{
			Host:    host,
			Slot:    slot,
			Shell:   s.Shell,
			Tool:    s.Tool,
			Logger:  s.logger().With(slog.String("component", "encoder"), slog.String("host", host.Name)),
			Tracker: encoderTracker,
		}
		managers[i] = mgr

		g.Go(func() error {
			return enc.Run(gctx)
		})
		g.Go(func() error {
			encoded, err := mgr.Run(gctx)
			results[i] = encoded
			return err
		})
	}

	runErr := g.Wait()
	if runErr != nil && s.Tracker != nil {
		s.Tracker.MarkAborting()
	}

	s.writeReport(startedAt, managers, runErr)

	if runErr != nil {
		return nil, runErr
	}

	var all []model.EncodedChunk
	for _, r := range results {
		all = append(all, r...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Index < all[j].Index })

	s.logger().Info("all hosts drained", slog.Int("chunks", len(all)), slog.Int("hosts", len(s.Hosts)))
	return all, nil
}

func (s *Supervisor) writeReport(startedAt time.Time, managers []*transfer.Manager, runErr error) {
	if s.ReportPath == "" {
		return
	}

	hostNames := make([]string, len(s.Hosts))
	var assignments []report.Assignment
	for i, host := range s.Hosts {
		hostNames[i] = host.Name
		if managers[i] != nil {
			assignments = append(assignments, managers[i].Assignments...)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].Index < assignments[j].Index })

	rep := &report.Report{
		Input:       s.Input,
		Output:      s.Output,
		Hosts:       hostNames,
		StartedAt:   startedAt,
		FinishedAt:  time.Now(),
		Aborted:     runErr != nil,
		Assignments: assignments,
	}
	if runErr != nil {
		rep.Error = runErr.Error()
	}

	if err := rep.WriteYAML(s.ReportPath); err != nil {
		s.logger().Warn("failed writing run report", slog.String("path", s.ReportPath), slog.String("error", err.Error()))
	}
}

func (s *Supervisor) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
