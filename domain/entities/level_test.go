package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForExperience(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		experience int64
		want       int
	}{
		{-5, 1},
		{0, 1},
		{99, 1},
		{100, 2},
		{250, 3},
		{9899, 99},
		{9900, 100},
		{1_000_000, 100},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, LevelForExperience(tc.experience), "experience %d", tc.experience)
	}
}

func TestProgressForExperience(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Progress{Level: 1, CurrentXP: 0, NeededXP: 100}, ProgressForExperience(0))
	assert.Equal(t, Progress{Level: 2, CurrentXP: 42, NeededXP: 100}, ProgressForExperience(142))
	assert.Equal(t, Progress{Level: 100, CurrentXP: 100, NeededXP: 100}, ProgressForExperience(9900))
}

func TestApplyPremiumMultiplier(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(110), ApplyPremiumMultiplier(100))
	assert.Equal(t, int64(16), ApplyPremiumMultiplier(15))
	assert.Equal(t, int64(9), ApplyPremiumMultiplier(9))
	assert.Equal(t, int64(0), ApplyPremiumMultiplier(0))
}
