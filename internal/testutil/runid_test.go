package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunIDGenerator(t *testing.T) {
	gen := NewFixedRunIDGenerator("run-123")

	assert.Equal(t, "run-123", gen.Generate())
	assert.Equal(t, "run-123", gen.Generate())
}

func TestFixedRunIDGenerator_EmptyDefault(t *testing.T) {
	assert.Equal(t, DefaultRunID, NewFixedRunIDGenerator("").Generate())
}

func TestNow(t *testing.T) {
	assert.Equal(t, FixedNow, Now())
	assert.Equal(t, "Wednesday", Now().Weekday().String())
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger()
	assert.NotNil(t, logger)
	logger.Error("dropped")
}
