package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mistvane/distrans/internal/config"
	"github.com/mistvane/distrans/internal/coreerrors"
	"github.com/mistvane/distrans/internal/dispatch"
	"github.com/mistvane/distrans/internal/hostpool"
	"github.com/mistvane/distrans/internal/ledger"
	"github.com/mistvane/distrans/internal/media"
	"github.com/mistvane/distrans/internal/model"
	"github.com/mistvane/distrans/internal/observability"
	"github.com/mistvane/distrans/internal/queue"
	"github.com/mistvane/distrans/internal/remote"
	"github.com/mistvane/distrans/internal/statusapi"
)

var runFlags struct {
	clients    []string
	length     string
	tmpDir     string
	keep       bool
	statusAddr string
	historyDB  string
	ffmpegBin  string
	ffprobeBin string
}

var runCmd = &cobra.Command{
	Use:   "run IN OUT",
	Short: "Split, distribute, and re-encode a video across a pool of hosts",
	Long: `run splits IN into chunks, farms each chunk out to one of the hosts
named by --clients over SSH for re-encoding, and reassembles the finished
chunks into OUT.`,
	Args: cobra.ExactArgs(2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runFlags.clients, "clients", "c", nil, "comma-separated list of remote hosts to distribute encoding across (required)")
	runCmd.Flags().StringVarP(&runFlags.length, "length", "l", "60s", "target chunk length; a bare number is seconds (e.g. 60, 90s, 2m)")
	runCmd.Flags().StringVarP(&runFlags.tmpDir, "tmp", "t", "", "local temp directory for chunks (default: a new distrans-* directory under the home directory)")
	runCmd.Flags().BoolVarP(&runFlags.keep, "keep", "k", false, "keep local and remote temp files after the run instead of cleaning up")
	runCmd.Flags().StringVar(&runFlags.statusAddr, "status-addr", "", "if set, serve run progress as JSON on this address (e.g. 127.0.0.1:8090)")
	runCmd.Flags().StringVar(&runFlags.historyDB, "history-db", "", "path to the run ledger sqlite database")
	runCmd.Flags().StringVar(&runFlags.ffmpegBin, "ffmpeg", "", "path to the ffmpeg binary (default: PATH lookup)")
	runCmd.Flags().StringVar(&runFlags.ffprobeBin, "ffprobe", "", "path to the ffprobe binary (default: PATH lookup)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]
	logger := observability.LoggerFromContext(cmd.Context())

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	clients := runFlags.clients
	if len(clients) == 0 {
		clients = cfg.Clients
	}
	if len(clients) == 0 {
		return coreerrors.ErrNoHosts
	}

	lengthArg := runFlags.length
	if _, convErr := strconv.Atoi(lengthArg); convErr == nil {
		lengthArg += "s"
	}
	chunkLen, err := config.ParseDuration(lengthArg)
	if err != nil {
		return fmt.Errorf("parsing --length: %w", err)
	}

	if _, err := os.Stat(in); err != nil {
		return fmt.Errorf("%w: %s", coreerrors.ErrInputUnreadable, in)
	}

	if runFlags.historyDB != "" {
		cfg.Database.Path = runFlags.historyDB
	}

	tmpRoot := runFlags.tmpDir
	if tmpRoot == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return fmt.Errorf("%w: locating home directory: %v", coreerrors.ErrLocalIO, homeErr)
		}
		tmpRoot, err = os.MkdirTemp(home, "distrans-*")
		if err != nil {
			return fmt.Errorf("%w: creating local temp dir: %v", coreerrors.ErrLocalIO, err)
		}
	} else if err := os.MkdirAll(tmpRoot, 0o750); err != nil {
		return fmt.Errorf("%w: creating local temp dir: %v", coreerrors.ErrLocalIO, err)
	}
	if !runFlags.keep {
		defer func() {
			if rmErr := os.RemoveAll(tmpRoot); rmErr != nil {
				logger.Warn("failed removing local temp directory", slog.String("path", tmpRoot), slog.String("error", rmErr.Error()))
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tool := &media.Tool{FFmpegPath: runFlags.ffmpegBin}
	if _, err := media.DetectBinary(ctx, runFlags.ffmpegBin, runFlags.ffprobeBin); err != nil {
		return err
	}

	media.WarnIfTight(ctx, logger, tmpRoot, inputSize(in), cfg.MinFreeSpace.Bytes())

	led, err := ledger.Open(cfg.Database, logger)
	if err != nil {
		logger.Warn("run ledger unavailable, continuing without history", slog.String("error", err.Error()))
		led = nil
	}
	var runID string
	if led != nil {
		defer func() { _ = led.Close() }()
		runID, err = led.Begin(ctx, in, out, clients)
		if err != nil {
			logger.Warn("failed recording run start", slog.String("error", err.Error()))
		}
	}

	chunkDir := filepath.Join(tmpRoot, "chunks")
	outDir := filepath.Join(tmpRoot, "encoded")
	for _, d := range []string{chunkDir, outDir} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return fmt.Errorf("%w: %v", coreerrors.ErrLocalIO, err)
		}
	}

	logger.Info("splitting input", slog.String("input", in), slog.Duration("chunk_length", chunkLen.Duration()))
	chunkPaths, err := tool.Split(ctx, in, chunkLen.Duration(), chunkDir)
	if err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrSplitFailed, err)
	}

	audioPath := filepath.Join(tmpRoot, "audio.m4a")
	if err := tool.ExtractAudio(ctx, in, audioPath); err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrAudioExtractFailed, err)
	}

	chunks := make([]model.Chunk, len(chunkPaths))
	for i, p := range chunkPaths {
		chunks[i] = model.Chunk{Index: i, LocalPath: p, Name: filepath.Base(p)}
	}

	q := queue.New(chunks)
	hosts := hostpool.FromNames(clients, runFlags.keep)

	tracker := statusapi.NewTracker(len(chunks), q)
	if runFlags.statusAddr != "" {
		srv := statusapi.NewServer(runFlags.statusAddr, tracker, logger)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				logger.Warn("status server stopped", slog.String("error", err.Error()))
			}
		}()
	}

	supervisor := &dispatch.Supervisor{
		Queue:       q,
		Hosts:       hosts,
		Shell:       remote.SSHShell{},
		Copier:      remote.SCPCopier{},
		Tool:        tool,
		LocalOutDir: outDir,
		Logger:      logger,
		Tracker:     tracker,
		Input:       in,
		Output:      out,
		ReportPath:  filepath.Join(tmpRoot, "report.yaml"),
	}

	logger.Info("dispatching chunks", slog.Int("chunks", len(chunks)), slog.Int("hosts", len(hosts)))
	encoded, runErr := supervisor.Run(ctx)

	if led != nil && runID != "" {
		if err := led.Finish(ctx, runID, len(encoded), runErr); err != nil {
			logger.Warn("failed recording run outcome", slog.String("error", err.Error()))
		}
	}
	if runErr != nil {
		return runErr
	}

	encodedPaths := make([]string, len(encoded))
	for i, ec := range encoded {
		encodedPaths[i] = ec.LocalPath
	}

	logger.Info("concatenating encoded chunks", slog.Int("chunks", len(encodedPaths)), slog.String("output", out))
	if err := tool.Concatenate(ctx, encodedPaths, audioPath, out); err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrConcatFailed, err)
	}

	logger.Info("run complete", slog.String("output", out))
	return nil
}

func inputSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
