package compose

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// record swaps the runner's command for one that succeeds (or fails) while
// capturing the exact invocation.
func record(r *Runner, fail bool) *[][]string {
	var calls [][]string
	r.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		calls = append(calls, append([]string{name}, args...))
		bin := "true"
		if fail {
			bin = "false"
		}
		return exec.CommandContext(ctx, bin)
	}
	return &calls
}

func TestRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("Up", func(t *testing.T) {
		r := New("docker-compose.yml", nil)
		calls := record(r, false)

		require.NoError(t, r.Up(ctx))
		require.Len(t, *calls, 1)
		assert.Equal(t, []string{"docker", "compose", "-f", "docker-compose.yml", "up", "-d"}, (*calls)[0])
	})

	t.Run("Down", func(t *testing.T) {
		r := New("deploy/compose.yml", nil)
		calls := record(r, false)

		require.NoError(t, r.Down(ctx))
		assert.Equal(t, []string{"docker", "compose", "-f", "deploy/compose.yml", "down"}, (*calls)[0])
	})

	t.Run("Logs for one service", func(t *testing.T) {
		r := New("docker-compose.yml", nil)
		calls := record(r, false)

		require.NoError(t, r.Logs(ctx, "api"))
		assert.Equal(t, []string{"docker", "compose", "-f", "docker-compose.yml", "logs", "-f", "api"}, (*calls)[0])
	})

	t.Run("Logs for the whole stack", func(t *testing.T) {
		r := New("docker-compose.yml", nil)
		calls := record(r, false)

		require.NoError(t, r.Logs(ctx, ""))
		assert.Equal(t, []string{"docker", "compose", "-f", "docker-compose.yml", "logs", "-f"}, (*calls)[0])
	})

	t.Run("Command failure is surfaced", func(t *testing.T) {
		r := New("docker-compose.yml", nil)
		record(r, true)

		assert.Error(t, r.Up(ctx))
	})
}
