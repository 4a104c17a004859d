package presentation

import (
	"testing"

	"paygate/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderIsExhaustive(t *testing.T) {
	idle, err := Render(entity.StateIdle)
	require.NoError(t, err)
	assert.False(t, idle.Visible)

	processing, err := Render(entity.StateProcessing)
	require.NoError(t, err)
	assert.True(t, processing.Visible)
	assert.False(t, processing.Dismissable)
	assert.Equal(t, ToneProgress, processing.Tone)

	for _, s := range []entity.LifecycleState{entity.StateSuccess, entity.StateFailed} {
		v, err := Render(s)
		require.NoError(t, err)
		assert.True(t, v.Visible)
		assert.True(t, v.Dismissable)
	}

	_, err = Render(entity.LifecycleState(42))
	assert.Error(t, err)
}

func TestModalDismiss(t *testing.T) {
	state := entity.StateFailed
	closed := 0
	m := NewModal(func() entity.LifecycleState { return state }, func() error {
		closed++
		state = entity.StateIdle
		return nil
	})

	require.NoError(t, m.Dismiss())
	assert.Equal(t, 1, closed)
	assert.Equal(t, entity.StateIdle, state)

	assert.ErrorIs(t, m.Dismiss(), ErrNotDismissable)
	state = entity.StateProcessing
	assert.ErrorIs(t, m.Dismiss(), ErrNotDismissable)
	assert.Equal(t, 1, closed)
}
