package gpu

import (
	"context"
	"os/exec"
)

//go:generate mockgen -destination=mock_runner.go -package=gpu sysbar/gpu Runner

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. The context bounds the process
// lifetime; it is killed when the context expires.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
