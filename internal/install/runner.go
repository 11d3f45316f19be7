package install

import (
	"context"
	"os/exec"
)

// Runner executes external tools. Arguments are always passed as discrete
// vectors, never through a shell, so manifest-supplied names and versions
// cannot inject commands.
type Runner interface {
	// Run executes name with args in dir (empty dir means the process
	// default) and returns combined stdout and stderr.
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
	// LookPath reports whether name is available on the host.
	LookPath(name string) bool
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

func (execRunner) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
