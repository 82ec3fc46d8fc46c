package compose

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// Runner shells out to docker compose for the service's container lifecycle.
// Orchestration itself lives in the compose file; this only invokes it.
type Runner struct {
	composeFile string
	logger      *zap.Logger

	// command is swappable so tests can observe the invocation.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New creates a runner bound to one compose file.
func New(composeFile string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		composeFile: composeFile,
		logger:      logger.Named("Compose"),
		command:     exec.CommandContext,
	}
}

// Up starts the service stack detached.
func (r *Runner) Up(ctx context.Context) error {
	return r.run(ctx, "up", "-d")
}

// Down stops and removes the service stack.
func (r *Runner) Down(ctx context.Context) error {
	return r.run(ctx, "down")
}

// Logs follows the logs of one service, or of the whole stack when service
// is empty. Blocks until the context is cancelled or compose exits.
func (r *Runner) Logs(ctx context.Context, service string) error {
	args := []string{"logs", "-f"}
	if service != "" {
		args = append(args, service)
	}
	return r.run(ctx, args...)
}

func (r *Runner) run(ctx context.Context, args ...string) error {
	full := append([]string{"compose", "-f", r.composeFile}, args...)
	r.logger.Debug("Running docker compose", zap.Strings("args", full))

	cmd := r.command(ctx, "docker", full...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker compose %s failed: %w", args[0], err)
	}
	return nil
}
