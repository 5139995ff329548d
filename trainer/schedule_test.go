package trainer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/emotion/trainer"
)

func TestLinearSchedule(t *testing.T) {
	s, err := trainer.NewSchedule("linear", 1.0, 0.1, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Warmup())
	assert.InDelta(t, 0.1, s.At(0), 1e-12)
	assert.InDelta(t, 1.0, s.At(9), 1e-12)
	assert.InDelta(t, 1.0, s.At(10), 1e-12)
	assert.InDelta(t, 0.5, s.At(55), 1e-12)
	assert.Greater(t, s.At(99), 0.0)
	assert.Equal(t, 0.0, s.At(150))
}

func TestCosineSchedule(t *testing.T) {
	s, err := trainer.NewSchedule("cosine", 2.0, 0, 10)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, s.At(0), 1e-12)
	assert.InDelta(t, 1.0, s.At(5), 1e-9)
	assert.InDelta(t, 0.0, s.At(10), 1e-9)
}

func TestConstantAndUnknownSchedule(t *testing.T) {
	s, err := trainer.NewSchedule("constant", 0.3, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 0.3, s.At(4))

	_, err = trainer.NewSchedule("polynomial", 0.3, 0, 5)
	assert.Error(t, err)
}
