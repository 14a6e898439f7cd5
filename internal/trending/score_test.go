package trending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScoreWeights(t *testing.T) {
	now := time.Now()

	// Zero engagement at creation time scores zero
	assert.Equal(t, 0.0, Score(0, 0, 0, now, now))

	// One of each counter
	got := Score(1, 1, 10, now, now)
	assert.InDelta(t, LikeWeight+CommentWeight+10*ViewWeight, got, 1e-9)
}

func TestScoreMonotonicInEngagement(t *testing.T) {
	now := time.Now()
	created := now.Add(-48 * time.Hour)

	base := Score(10, 5, 100, created, now)

	assert.Greater(t, Score(11, 5, 100, created, now), base, "more likes must not lower the score")
	assert.Greater(t, Score(10, 6, 100, created, now), base, "more comments must not lower the score")
	assert.Greater(t, Score(10, 5, 101, created, now), base, "more views must not lower the score")
}

func TestScoreDecaysWithAge(t *testing.T) {
	now := time.Now()

	young := Score(10, 5, 100, now.Add(-1*time.Hour), now)
	old := Score(10, 5, 100, now.Add(-100*time.Hour), now)

	assert.Greater(t, young, old)
	assert.InDelta(t, 99*HourlyDecay, young-old, 1e-9)
}

func TestScoreClampsFutureCreation(t *testing.T) {
	now := time.Now()

	// Clock skew must not inflate the score
	future := Score(1, 0, 0, now.Add(time.Hour), now)
	assert.Equal(t, Score(1, 0, 0, now, now), future)
}
