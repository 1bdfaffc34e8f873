package personalization

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExploration(store Store) *ExplorationController {
	c := NewExplorationController(store, zerolog.Nop())
	c.now = func() time.Time { return testNow }
	return c
}

func TestGetMetricsDefaults(t *testing.T) {
	c := newTestExploration(newFakeStore())

	metrics := c.GetMetrics(context.Background(), 1)
	assert.Equal(t, defaultExplorationLevel, metrics.AdaptiveLevel)
	assert.Zero(t, metrics.Shown)
}

func TestGetMetricsDefaultsOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failReads = true
	c := newTestExploration(store)

	metrics := c.GetMetrics(context.Background(), 1)
	assert.Equal(t, defaultExplorationLevel, metrics.AdaptiveLevel)
}

func TestRecordOutcomeCounts(t *testing.T) {
	store := newFakeStore()
	c := newTestExploration(store)
	ctx := context.Background()

	require.NoError(t, c.RecordOutcome(ctx, 1, OutcomeShown))
	require.NoError(t, c.RecordOutcome(ctx, 1, OutcomeLiked))
	require.NoError(t, c.RecordOutcome(ctx, 1, OutcomeShown))

	metrics := c.GetMetrics(ctx, 1)
	assert.Equal(t, 2, metrics.Shown)
	assert.Equal(t, 1, metrics.Liked)
	assert.InDelta(t, 50.0, metrics.SuccessRate, 0.001)

	assert.Error(t, c.RecordOutcome(ctx, 1, "purchased"))
}

func TestAdaptationIncreasesOnSuccess(t *testing.T) {
	store := newFakeStore()
	store.exploration[1] = &ExplorationMetrics{Shown: 4, Liked: 2, AdaptiveLevel: 10}
	c := newTestExploration(store)

	// Fifth shown trips the adaptation check: 2/5 = 40% success.
	require.NoError(t, c.RecordOutcome(context.Background(), 1, OutcomeShown))
	assert.Equal(t, 12, c.GetMetrics(context.Background(), 1).AdaptiveLevel)
}

func TestAdaptationDecreasesOnFailure(t *testing.T) {
	store := newFakeStore()
	store.exploration[1] = &ExplorationMetrics{Shown: 9, Liked: 0, Worn: 0, AdaptiveLevel: 10}
	c := newTestExploration(store)

	require.NoError(t, c.RecordOutcome(context.Background(), 1, OutcomeShown))
	assert.Equal(t, 8, c.GetMetrics(context.Background(), 1).AdaptiveLevel)
}

func TestAdaptationWaitsForSampleSize(t *testing.T) {
	store := newFakeStore()
	store.exploration[1] = &ExplorationMetrics{Shown: 3, Liked: 3, AdaptiveLevel: 10}
	c := newTestExploration(store)

	// Only 4 shown: perfect success rate must not move the level yet.
	require.NoError(t, c.RecordOutcome(context.Background(), 1, OutcomeShown))
	assert.Equal(t, 10, c.GetMetrics(context.Background(), 1).AdaptiveLevel)
}

func TestAdaptationRespectsBounds(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	store.exploration[1] = &ExplorationMetrics{Shown: 9, Liked: 9, AdaptiveLevel: explorationCeiling}
	c := newTestExploration(store)
	require.NoError(t, c.RecordOutcome(ctx, 1, OutcomeShown))
	assert.Equal(t, explorationCeiling, c.GetMetrics(ctx, 1).AdaptiveLevel)

	store.exploration[2] = &ExplorationMetrics{Shown: 9, AdaptiveLevel: explorationFloor}
	require.NoError(t, c.RecordOutcome(ctx, 2, OutcomeShown))
	assert.Equal(t, explorationFloor, c.GetMetrics(ctx, 2).AdaptiveLevel)
}

func lockedPrefs(colorWeights, styleWeights []float64) *ComprehensivePreferences {
	prefs := EmptyPreferences()
	for i, w := range colorWeights {
		prefs.FavoriteColors = append(prefs.FavoriteColors, ColorPreference{Color: string(rune('a' + i)), Weight: w})
	}
	for i, w := range styleWeights {
		prefs.StylePreferences = append(prefs.StylePreferences, StylePreference{Style: string(rune('a' + i)), Weight: w})
	}
	return prefs
}

func TestDetectPatternLock(t *testing.T) {
	// Top-3 colors hold 90%, top-2 styles hold 90%: locked.
	locked := DetectPatternLock(lockedPrefs([]float64{50, 30, 10, 10}, []float64{50, 40, 10}))
	assert.True(t, locked.Locked)
	assert.Equal(t, forcedExplorationLevel, locked.ForceExplorationPercentage)
	assert.InDelta(t, 90.0, locked.TopColorShare, 0.001)
	assert.InDelta(t, 90.0, locked.TopStyleShare, 0.001)
}

func TestDetectPatternLockThresholdsAreStrict(t *testing.T) {
	// Exactly at both limits (85% / 80%) stays unlocked.
	status := DetectPatternLock(lockedPrefs([]float64{45, 20, 20, 15}, []float64{50, 30, 20}))
	assert.False(t, status.Locked)
	assert.Equal(t, defaultExplorationLevel, status.ForceExplorationPercentage)
	assert.InDelta(t, 85.0, status.TopColorShare, 0.001)
	assert.InDelta(t, 80.0, status.TopStyleShare, 0.001)
}

func TestDetectPatternLockNeedsBothDimensions(t *testing.T) {
	// Concentrated colors, spread styles: not locked.
	status := DetectPatternLock(lockedPrefs([]float64{50, 30, 10, 10}, []float64{30, 25, 25, 20}))
	assert.False(t, status.Locked)

	// Spread colors, concentrated styles: not locked.
	status = DetectPatternLock(lockedPrefs([]float64{30, 25, 25, 20}, []float64{50, 40, 10}))
	assert.False(t, status.Locked)
}

func TestDetectPatternLockNeedsMinimumBreadth(t *testing.T) {
	// Two colors always concentrate to 100%, but with fewer than three
	// tracked colors there is nothing to lock onto.
	status := DetectPatternLock(lockedPrefs([]float64{60, 40}, []float64{50, 40, 10}))
	assert.False(t, status.Locked)

	status = DetectPatternLock(lockedPrefs([]float64{50, 30, 10, 10}, []float64{100}))
	assert.False(t, status.Locked)
}
