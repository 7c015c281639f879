// Package model defines the data types shared by distrans's distribution
// engine: chunks, their encoded counterparts, and the hosts that process
// them.
package model

// Chunk is a contiguous, independently transcodable slice of the source
// video, produced once by the split collaborator before dispatch begins.
// Chunks are immutable for the lifetime of a run.
type Chunk struct {
	// Index is the 0-based position of this chunk in the source video; it
	// defines the final concatenation order.
	Index int
	// LocalPath is the path to this chunk's source bytes on the local
	// filesystem.
	LocalPath string
	// Name is the logical filename used for this chunk, both locally and
	// as the basename on the remote host.
	Name string
}

// EncodedChunk is the transcoded counterpart of a Chunk, produced once a
// manager finishes pulling the remote output back to local disk.
type EncodedChunk struct {
	// Index matches the source Chunk's Index.
	Index int
	// LocalPath is where the encoded bytes were written locally.
	LocalPath string
}
