// Package media implements the media-tool collaborator spec.md treats as
// black-box: split, audio extraction, remote transcode, and concatenation.
// Only ffmpeg/ffprobe subprocess invocation is implemented here; correctness
// of the codec/container choices is the operator's concern via EncodeArgs.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/mistvane/distrans/internal/remote"
)

// DefaultEncodeArgs mirrors the original tool's default ffmpeg options for
// chunk encoding: a conservative, broadly-compatible x264 profile.
var DefaultEncodeArgs = []string{
	"-c:v", "libx264",
	"-crf", "26",
	"-preset", "veryslow",
	"-profile:v", "high",
	"-level", "4.2",
	"-pix_fmt", "yuv420p",
}

// Tool drives ffmpeg for the four operations the distribution engine
// consumes as a black box.
type Tool struct {
	// FFmpegPath is the local ffmpeg binary; empty means "ffmpeg" on PATH.
	FFmpegPath string
	// EncodeArgs are the video-only ffmpeg flags applied when transcoding
	// each chunk on a remote host. Defaults to DefaultEncodeArgs.
	EncodeArgs []string
}

func (t *Tool) ffmpegBin() string {
	if t.FFmpegPath == "" {
		return "ffmpeg"
	}
	return t.FFmpegPath
}

func (t *Tool) encodeArgs() []string {
	if len(t.EncodeArgs) == 0 {
		return DefaultEncodeArgs
	}
	return t.EncodeArgs
}

// Split segments in into video-only chunks of roughly chunkLen each, written
// to outDir with a predictable naming pattern, and returns them ordered by
// chunk index.
func (t *Tool) Split(ctx context.Context, in string, chunkLen time.Duration, outDir string) ([]string, error) {
	pattern := filepath.Join(outDir, "chunk_%04d.mp4")
	args := []string{
		"-y", "-i", in,
		"-an", "-c", "copy",
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%d", int(chunkLen.Seconds())),
		"-reset_timestamps", "1",
		pattern,
	}
	if err := t.run(ctx, args); err != nil {
		return nil, fmt.Errorf("splitting %s: %w", in, err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("reading chunk dir %s: %w", outDir, err)
	}
	var chunks []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		chunks = append(chunks, filepath.Join(outDir, e.Name()))
	}
	sort.Strings(chunks)
	return chunks, nil
}

// ExtractAudio encodes the audio track of in to a single AAC file at out.
func (t *Tool) ExtractAudio(ctx context.Context, in, out string) error {
	args := []string{"-y", "-i", in, "-vn", "-c:a", "aac", "-b:a", "192k", out}
	if err := t.run(ctx, args); err != nil {
		return fmt.Errorf("extracting audio from %s: %w", in, err)
	}
	return nil
}

// TranscodeChunk runs the encode command on host via shell, reading
// remoteIn and writing remoteOut, both already resident on host.
func (t *Tool) TranscodeChunk(ctx context.Context, shell remote.Shell, host, remoteIn, remoteOut string) error {
	cmd := buildRemoteEncodeCommand(t.ffmpegBin(), remoteIn, remoteOut, t.encodeArgs())
	if stdout, stderr, err := shell.Run(ctx, host, cmd); err != nil {
		return fmt.Errorf("transcoding %s on %s: %w: stdout=%s stderr=%s", remoteIn, host, err, stdout, stderr)
	}
	return nil
}

func buildRemoteEncodeCommand(bin, in, out string, encodeArgs []string) string {
	parts := append([]string{bin, "-y", "-i", quote(in)}, encodeArgs...)
	parts = append(parts, quote(out))
	cmd := ""
	for i, p := range parts {
		if i > 0 {
			cmd += " "
		}
		cmd += p
	}
	return cmd
}

func quote(s string) string {
	return "'" + s + "'"
}

// Concatenate joins the encoded chunks (already ordered by index) and the
// extracted audio track into out.
func (t *Tool) Concatenate(ctx context.Context, chunks []string, audio, out string) error {
	if len(chunks) == 0 {
		return fmt.Errorf("concatenating: no encoded chunks provided")
	}

	listPath := filepath.Join(filepath.Dir(chunks[0]), "concat_list.txt")
	var buf bytes.Buffer
	for _, c := range chunks {
		fmt.Fprintf(&buf, "file '%s'\n", c)
	}
	if err := os.WriteFile(listPath, buf.Bytes(), 0o644); err != nil { //nolint:gosec // local scratch file, not sensitive
		return fmt.Errorf("writing concat list: %w", err)
	}

	args := []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-i", audio,
		"-c", "copy",
		"-movflags", "+faststart",
		out,
	}
	if err := t.run(ctx, args); err != nil {
		return fmt.Errorf("concatenating chunks into %s: %w", out, err)
	}
	return nil
}

func (t *Tool) run(ctx context.Context, args []string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.ffmpegBin(), args...) // #nosec G204 - args are internally constructed from validated paths
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, stderr.String())
	}
	return nil
}
