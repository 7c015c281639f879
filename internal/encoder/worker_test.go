package encoder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mistvane/distrans/internal/hostpool"
	"github.com/mistvane/distrans/internal/media"
	"github.com/mistvane/distrans/internal/model"
	"github.com/mistvane/distrans/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShell struct {
	failOn map[string]bool
}

func (f fakeShell) Run(_ context.Context, host, command string) (string, string, error) {
	if f.failOn[host] {
		return "", "boom", errors.New("exit status 1")
	}
	return "", "", nil
}

func TestWorker_Run_ClaimsUntilSlotClosed(t *testing.T) {
	slot := transfer.NewSlot()
	w := &Worker{
		Host:  hostpool.Host{Name: "worker1"},
		Slot:  slot,
		Shell: fakeShell{},
		Tool:  &media.Tool{},
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	for i := 0; i < 3; i++ {
		slot.Staged <- transfer.StagedChunk{
			Chunk:     model.Chunk{Index: i, Name: "chunk.mp4"},
			RemoteIn:  "in.mp4",
			RemoteOut: "out.mp4",
		}
		select {
		case idx := <-slot.Done:
			assert.Equal(t, i, idx)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for completion of chunk %d", i)
		}
	}
	close(slot.Staged)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after slot closed")
	}
}

func TestWorker_Run_ReturnsFatalErrorOnEncodeFailure(t *testing.T) {
	slot := transfer.NewSlot()
	w := &Worker{
		Host:  hostpool.Host{Name: "worker1"},
		Slot:  slot,
		Shell: fakeShell{failOn: map[string]bool{"worker1": true}},
		Tool:  &media.Tool{},
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	slot.Staged <- transfer.StagedChunk{
		Chunk:     model.Chunk{Index: 0, Name: "chunk.mp4"},
		RemoteIn:  "in.mp4",
		RemoteOut: "out.mp4",
	}

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not return after encode failure")
	}
}
