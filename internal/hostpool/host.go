// Package hostpool builds the per-run Host records the dispatch supervisor
// hands to each (manager, encoder) pair.
package hostpool

import (
	"fmt"

	"github.com/google/uuid"
)

// Host binds one pair to one remote machine: its name as accepted by the
// remote-shell collaborator, and the remote temp directory that pair owns
// for the life of the run.
type Host struct {
	// Name is the hostname passed to the remote-shell collaborator.
	Name string
	// RemoteTmpDir is this pair's unique remote scratch directory.
	RemoteTmpDir string
	// KeepTmp retains RemoteTmpDir after the pair terminates instead of
	// removing it.
	KeepTmp bool
}

// FromNames builds one Host per entry in names, deriving a unique remote
// temp directory for each. A hostname listed twice yields two Hosts with
// distinct temp directories rather than being rejected or merged: two pairs
// then simply share a machine, which spec.md's design notes call the safer
// resolution of that open question since ownership of the remote directory
// stays single-pair regardless.
func FromNames(names []string, keepTmp bool) []Host {
	hosts := make([]Host, len(names))
	for i, name := range names {
		hosts[i] = Host{
			Name:         name,
			RemoteTmpDir: remoteTmpDir(),
			KeepTmp:      keepTmp,
		}
	}
	return hosts
}

func remoteTmpDir() string {
	return fmt.Sprintf("distrans-%s", uuid.New().String())
}
