package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", Default.ProgressBar(50, 10))
	assert.Equal(t, "██████████", Default.ProgressBar(250, 10))
	assert.Equal(t, "░░░░", Default.ProgressBar(-5, 4))
	assert.Empty(t, Default.ProgressBar(50, 0))
}

func TestForPercentage(t *testing.T) {
	assert.Equal(t, Default.Good, Default.ForPercentage(10, 80, 100))
	assert.Equal(t, Default.Warn, Default.ForPercentage(80, 80, 100))
	assert.Equal(t, Default.Bad, Default.ForPercentage(100, 80, 100))
}
