package skill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillstream/progression-engine/internal/domain/shared"
)

func TestPerceptionScore(t *testing.T) {
	// Exact match scores 100.
	score, err := PerceptionScore(4, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, 100, score)

	// One step off on a 1-5 scale: 1 - 1/4 = 75.
	score, err = PerceptionScore(3, 4, 5)
	require.NoError(t, err)
	assert.Equal(t, 75, score)

	// Maximum distance scores 0.
	score, err = PerceptionScore(1, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	// One step off on a 1-7 scale: 1 - 1/6 = 83.33, rounds to 83.
	score, err = PerceptionScore(3, 4, 7)
	require.NoError(t, err)
	assert.Equal(t, 83, score)
}

func TestPerceptionScore_Validation(t *testing.T) {
	_, err := PerceptionScore(1, 1, 1)
	assert.Error(t, err)

	_, err = PerceptionScore(0, 3, 5)
	assert.Error(t, err)

	_, err = PerceptionScore(6, 3, 5)
	assert.Error(t, err)

	_, err = PerceptionScore(3, 0, 5)
	assert.Error(t, err)
}

func TestIntentScore(t *testing.T) {
	tests := []struct {
		answer   int
		expected int
	}{
		{1, 14},
		{2, 29},
		{3, 43},
		{4, 57},
		{5, 71},
		{6, 86},
		{7, 100},
	}

	for _, tt := range tests {
		score, err := IntentScore(tt.answer)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, score, "answer %d", tt.answer)
	}

	_, err := IntentScore(0)
	assert.Error(t, err)
	_, err = IntentScore(8)
	assert.Error(t, err)
}

func TestVideoScore(t *testing.T) {
	// Mean of the per-question scores, rounded.
	score, err := VideoScore([]int{100, 75, 83})
	require.NoError(t, err)
	assert.Equal(t, 86, score)

	score, err = VideoScore([]int{50})
	require.NoError(t, err)
	assert.Equal(t, 50, score)

	// 0.5 rounds up.
	score, err = VideoScore([]int{50, 51})
	require.NoError(t, err)
	assert.Equal(t, 51, score)
}

func TestVideoScore_Validation(t *testing.T) {
	_, err := VideoScore(nil)
	assert.ErrorIs(t, err, shared.ErrNoScorableAnswers)

	_, err = VideoScore([]int{50, 101})
	assert.ErrorIs(t, err, shared.ErrInvalidScore)

	_, err = VideoScore([]int{-1})
	assert.ErrorIs(t, err, shared.ErrInvalidScore)
}
