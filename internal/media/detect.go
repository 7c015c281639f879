package media

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"
)

// BinaryInfo describes the local ffmpeg installation, trimmed down from a
// full capability probe to just what a Config error check needs: is it
// present, and what version is it.
type BinaryInfo struct {
	FFmpegPath  string
	FFprobePath string
	Version     string
}

var versionRe = regexp.MustCompile(`ffmpeg version (\S+)`)

// DetectBinary locates ffmpeg and ffprobe on PATH and reports their version.
// It returns an error (a Config error per spec.md's error table) if either
// binary is missing, so the run fails fast before the input is split into
// chunks.
func DetectBinary(ctx context.Context, ffmpegPath, ffprobePath string) (*BinaryInfo, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}

	resolvedFFmpeg, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}
	if _, err := exec.LookPath(ffprobePath); err != nil {
		return nil, fmt.Errorf("ffprobe not found on PATH: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, resolvedFFmpeg, "-version").Output() // #nosec G204 - fixed flag, resolved path
	if err != nil {
		return nil, fmt.Errorf("running %s -version: %w", resolvedFFmpeg, err)
	}

	version := "unknown"
	if m := versionRe.FindSubmatch(out); m != nil {
		version = string(m[1])
	}

	return &BinaryInfo{
		FFmpegPath:  resolvedFFmpeg,
		FFprobePath: ffprobePath,
		Version:     version,
	}, nil
}
