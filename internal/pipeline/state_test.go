package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine(t *testing.T) {
	t.Run("Happy path visits every state in order", func(t *testing.T) {
		m := newMachine()
		order := []State{StatePreflight, StateStage1, StateLocate, StateNormalize, StateStage2, StateStage3, StateDone}
		for _, s := range order {
			require.NoError(t, m.advance(s))
		}
		assert.Equal(t, []State{StateIdle, StatePreflight, StateStage1, StateLocate, StateNormalize, StateStage2, StateStage3, StateDone}, m.visited)
	})

	t.Run("Skipping a state is rejected", func(t *testing.T) {
		m := newMachine()
		assert.Error(t, m.advance(StateStage1))
	})

	t.Run("Moving backwards is rejected", func(t *testing.T) {
		m := newMachine()
		require.NoError(t, m.advance(StatePreflight))
		require.NoError(t, m.advance(StateStage1))
		assert.Error(t, m.advance(StatePreflight))
	})

	t.Run("Failed reachable from every non-terminal state", func(t *testing.T) {
		order := []State{StatePreflight, StateStage1, StateLocate, StateNormalize, StateStage2, StateStage3}
		for i := range order {
			m := newMachine()
			for _, s := range order[:i] {
				require.NoError(t, m.advance(s))
			}
			assert.NoError(t, m.advance(StateFailed), "from %s", m.current)
		}
	})

	t.Run("Terminal states reject further transitions", func(t *testing.T) {
		m := newMachine()
		require.NoError(t, m.advance(StateFailed))
		assert.Error(t, m.advance(StatePreflight))
		assert.Error(t, m.advance(StateFailed))
	})

	t.Run("IsTerminal", func(t *testing.T) {
		assert.True(t, IsTerminal(StateDone))
		assert.True(t, IsTerminal(StateFailed))
		assert.False(t, IsTerminal(StateIdle))
		assert.False(t, IsTerminal(StateStage2))
	})
}
