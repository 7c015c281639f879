// Package remote implements the remote-shell and file-copy collaborators
// spec.md treats as black-box: a command runner and a bidirectional copier,
// both preconfigured for non-interactive key-based auth. The distribution
// engine only ever depends on the Shell and Copier interfaces below; the
// concrete implementations here shell out to the ssh and scp binaries, the
// same approach the original prototype took, since no SSH client library
// exists anywhere in the corpus this project was grounded on.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Shell runs a command on a named host and reports its exit status and
// captured stdout/stderr.
type Shell interface {
	Run(ctx context.Context, host, command string) (stdout, stderr string, err error)
}

// Copier moves a single file between the local machine and a named host.
type Copier interface {
	Push(ctx context.Context, localPath, host, remotePath string) error
	Pull(ctx context.Context, host, remotePath, localPath string) error
}

// SSHShell runs commands via the ssh binary on PATH.
type SSHShell struct {
	// BinPath overrides the ssh binary to invoke; empty means "ssh".
	BinPath string
}

// Run executes command on host over ssh and returns any captured
// stdout/stderr alongside a non-nil error on nonzero exit or connection
// failure.
func (s SSHShell) Run(ctx context.Context, host, command string) (string, string, error) {
	bin := s.bin()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, host, command) // #nosec G204 - host/command are operator-supplied CLI input, matching the original tool's threat model
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), stderr.String(), fmt.Errorf("ssh %s %q: %w", host, command, err)
	}
	return stdout.String(), stderr.String(), nil
}

func (s SSHShell) bin() string {
	if s.BinPath == "" {
		return "ssh"
	}
	return s.BinPath
}

// SCPCopier moves files via the scp binary on PATH.
type SCPCopier struct {
	// BinPath overrides the scp binary to invoke; empty means "scp".
	BinPath string
}

// Push copies localPath to host:remotePath.
func (c SCPCopier) Push(ctx context.Context, localPath, host, remotePath string) error {
	return c.run(ctx, localPath, fmt.Sprintf("%s:%s", host, remotePath))
}

// Pull copies host:remotePath to localPath.
func (c SCPCopier) Pull(ctx context.Context, host, remotePath, localPath string) error {
	return c.run(ctx, fmt.Sprintf("%s:%s", host, remotePath), localPath)
}

func (c SCPCopier) run(ctx context.Context, src, dst string) error {
	bin := c.BinPath
	if bin == "" {
		bin = "scp"
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, src, dst) // #nosec G204 - src/dst are host/path operator input, matching the original tool's threat model
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("scp %s -> %s: %w: %s", src, dst, err, stderr.String())
	}
	return nil
}
