// Package coreerrors declares the sentinel errors distrans's distribution
// engine can produce, matching the phases of the error handling table.
package coreerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per row of the error handling table. Concrete
// failures wrap one of these with fmt.Errorf("...: %w", err) so callers can
// still errors.Is against the phase that produced them.
var (
	// ErrNoHosts indicates the client list was empty.
	ErrNoHosts = errors.New("at least one host is required")

	// ErrInputUnreadable indicates IN could not be opened for reading.
	ErrInputUnreadable = errors.New("input file is not readable")

	// ErrLocalIO indicates a local temp directory or file operation failed.
	ErrLocalIO = errors.New("local I/O failed")

	// ErrSplitFailed indicates the media tool could not split the input.
	ErrSplitFailed = errors.New("splitting input into chunks failed")

	// ErrAudioExtractFailed indicates audio extraction failed.
	ErrAudioExtractFailed = errors.New("extracting audio failed")

	// ErrConcatFailed indicates the media tool could not join encoded chunks.
	ErrConcatFailed = errors.New("concatenating encoded chunks failed")

	// ErrHostSetupFailed indicates a host's remote temp directory could not
	// be created.
	ErrHostSetupFailed = errors.New("remote temp directory setup failed")

	// ErrTransferFailed indicates a push or pull between local and a host
	// failed.
	ErrTransferFailed = errors.New("chunk transfer failed")

	// ErrEncodeFailed indicates the remote transcode command exited
	// nonzero or the connection to the host was lost mid-encode.
	ErrEncodeFailed = errors.New("remote transcode failed")

	// ErrAborted indicates the run was cancelled because a sibling pair
	// failed; this pair never itself failed.
	ErrAborted = errors.New("run aborted by a sibling host failure")
)

// HostError names the host and phase that produced a fatal error, so the
// supervisor's diagnostic can identify both, as the propagation policy
// requires.
type HostError struct {
	Host       string
	ChunkIndex int // -1 when the error isn't tied to a specific chunk
	Phase      string
	Err        error
}

// Error implements the error interface.
func (e *HostError) Error() string {
	if e.ChunkIndex < 0 {
		return fmt.Sprintf("host %s: %s: %v", e.Host, e.Phase, e.Err)
	}
	return fmt.Sprintf("host %s: %s (chunk %d): %v", e.Host, e.Phase, e.ChunkIndex, e.Err)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped sentinel.
func (e *HostError) Unwrap() error {
	return e.Err
}

// NewHostError builds a HostError not tied to a specific chunk.
func NewHostError(host, phase string, err error) *HostError {
	return &HostError{Host: host, ChunkIndex: -1, Phase: phase, Err: err}
}

// NewChunkError builds a HostError tied to a specific chunk index.
func NewChunkError(host string, chunkIndex int, phase string, err error) *HostError {
	return &HostError{Host: host, ChunkIndex: chunkIndex, Phase: phase, Err: err}
}
