package media

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shirou/gopsutil/v4/disk"
)

// WarnIfTight logs a warning if the filesystem backing tmpDir has less free
// space than inputSizeBytes accounts for (a rough lower bound: split output,
// encoded output, and the audio track will all coexist there for a while)
// or less than minFreeBytes, whichever is larger. This is advisory, not
// fatal: a run isn't required to precondition on free space, so a
// tight-but-sufficient disk should not abort it.
func WarnIfTight(_ context.Context, logger *slog.Logger, tmpDir string, inputSizeBytes, minFreeBytes int64) {
	usage, err := disk.Usage(tmpDir)
	if err != nil {
		logger.Warn("could not determine free disk space", slog.String("path", tmpDir), slog.String("error", err.Error()))
		return
	}

	// Splitting and re-encoding roughly doubles the footprint of the input
	// before chunks are cleaned up.
	needed := uint64(inputSizeBytes) * 2
	if minFreeBytes > 0 && uint64(minFreeBytes) > needed {
		needed = uint64(minFreeBytes)
	}
	if usage.Free < needed {
		logger.Warn("local temp filesystem may be too small for this run",
			slog.String("path", tmpDir),
			slog.String("free", fmt.Sprintf("%d bytes", usage.Free)),
			slog.String("estimated_need", fmt.Sprintf("%d bytes", needed)),
		)
	}
}
