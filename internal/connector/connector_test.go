package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseTransitionsLinearly(t *testing.T) {
	b := NewBase("test")
	assert.Equal(t, Stopped, b.State())

	require.NoError(t, b.Transition(Starting))
	require.NoError(t, b.Transition(Running))
	require.NoError(t, b.Transition(Stopping))
	require.NoError(t, b.Transition(Stopped))
	assert.Equal(t, Stopped, b.State())
}

func TestBaseRejectsInvalidTransition(t *testing.T) {
	b := NewBase("test")
	assert.Error(t, b.Transition(Running))
	assert.Error(t, b.Transition(Stopping))
}

func TestFatalErrorUnwraps(t *testing.T) {
	inner := assert.AnError
	err := &FatalError{Connector: "mqtt", Err: inner}
	assert.ErrorIs(t, err, inner)
}
