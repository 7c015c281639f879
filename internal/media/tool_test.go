package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingShell struct {
	host, command string
	stdout        string
	stderr        string
	err           error
}

func (s *recordingShell) Run(_ context.Context, host, command string) (string, string, error) {
	s.host, s.command = host, command
	return s.stdout, s.stderr, s.err
}

func TestBuildRemoteEncodeCommand_QuotesPathsAndAppendsArgs(t *testing.T) {
	cmd := buildRemoteEncodeCommand("ffmpeg", "/tmp/in.mp4", "/tmp/out.mp4", []string{"-c:v", "libx264"})
	assert.Equal(t, "ffmpeg -y -i '/tmp/in.mp4' -c:v libx264 '/tmp/out.mp4'", cmd)
}

func TestTool_TranscodeChunk_RunsBuiltCommandOnHost(t *testing.T) {
	shell := &recordingShell{}
	tool := &Tool{}

	err := tool.TranscodeChunk(context.Background(), shell, "worker1", "/rin.mp4", "/rout.mp4")

	require.NoError(t, err)
	assert.Equal(t, "worker1", shell.host)
	assert.Contains(t, shell.command, "ffmpeg")
	assert.Contains(t, shell.command, "'/rin.mp4'")
	assert.Contains(t, shell.command, "'/rout.mp4'")
}

func TestTool_TranscodeChunk_WrapsShellFailure(t *testing.T) {
	shell := &recordingShell{stderr: "no such filter", err: assert.AnError}
	tool := &Tool{}

	err := tool.TranscodeChunk(context.Background(), shell, "worker1", "/rin.mp4", "/rout.mp4")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such filter")
}

func TestTool_TranscodeChunk_UsesConfiguredEncodeArgs(t *testing.T) {
	shell := &recordingShell{}
	tool := &Tool{EncodeArgs: []string{"-c:v", "libx265"}}

	require.NoError(t, tool.TranscodeChunk(context.Background(), shell, "worker1", "/in", "/out"))
	assert.Contains(t, shell.command, "libx265")
	assert.NotContains(t, shell.command, "libx264")
}

func TestTool_Split_ReturnsWrappedErrorWhenFFmpegMissing(t *testing.T) {
	tool := &Tool{FFmpegPath: "/no/such/ffmpeg-binary-distrans-test"}
	_, err := tool.Split(context.Background(), "in.mp4", 0, t.TempDir())
	require.Error(t, err)
}

func TestTool_Concatenate_NoChunksIsAnError(t *testing.T) {
	tool := &Tool{}
	err := tool.Concatenate(context.Background(), nil, "audio.m4a", "out.mp4")
	require.Error(t, err)
}
