package media

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectBinary_MissingFFmpegReturnsError(t *testing.T) {
	_, err := DetectBinary(context.Background(), "/no/such/ffmpeg-binary-distrans-test", "")
	require.Error(t, err)
}

func TestDetectBinary_MissingFFprobeReturnsError(t *testing.T) {
	_, err := DetectBinary(context.Background(), "", "/no/such/ffprobe-binary-distrans-test")
	require.Error(t, err)
}
