// internal/personalization/exploration.go
// Exploration Controller: adapts exploration aggressiveness from outcome
// feedback and detects pattern lock.

package personalization

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultExplorationLevel = 10
	explorationFloor        = 5
	explorationCeiling      = 25
	adaptationStep          = 2
	adaptAfterShown         = 5
	increaseRateThreshold   = 30.0 // percent
	decreaseRateThreshold   = 15.0

	forcedExplorationLevel   = 40
	colorConcentrationLimit  = 85.0 // top-3 color share, percent
	styleConcentrationLimit  = 80.0 // top-2 style share, percent
)

// Exploration outcome actions.
const (
	OutcomeShown = "shown"
	OutcomeLiked = "liked"
	OutcomeWorn  = "worn"
)

type ExplorationController struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewExplorationController(store Store, logger zerolog.Logger) *ExplorationController {
	return &ExplorationController{
		store:  store,
		logger: logger.With().Str("component", "exploration").Logger(),
		now:    time.Now,
	}
}

// GetMetrics returns the user's exploration counters, defaulting a new
// or unreachable record to the baseline exploration level.
func (c *ExplorationController) GetMetrics(ctx context.Context, userID int64) *ExplorationMetrics {
	metrics, found, err := c.store.ReadExplorationMetrics(ctx, userID)
	if err != nil {
		c.logger.Warn().Err(err).Int64("user_id", userID).Msg("exploration metrics read failed, using defaults")
		RecordDegradedRead("exploration")
		found = false
	}
	if !found {
		return &ExplorationMetrics{AdaptiveLevel: defaultExplorationLevel}
	}
	if metrics.AdaptiveLevel == 0 {
		metrics.AdaptiveLevel = defaultExplorationLevel
	}
	return metrics
}

// RecordOutcome counts one outcome for an exploratory pick and re-runs
// the adaptation rule. A bang-bang controller, not a PID loop: the
// signal is too sparse and noisy for anything finer.
func (c *ExplorationController) RecordOutcome(ctx context.Context, userID int64, action string) error {
	metrics := c.GetMetrics(ctx, userID)

	switch action {
	case OutcomeShown:
		metrics.Shown++
	case OutcomeLiked:
		metrics.Liked++
	case OutcomeWorn:
		metrics.Worn++
	default:
		return fmt.Errorf("unknown exploration outcome %q", action)
	}

	if metrics.Shown > 0 {
		metrics.SuccessRate = float64(metrics.Liked+metrics.Worn) / float64(metrics.Shown) * 100
	}

	if metrics.Shown >= adaptAfterShown {
		switch {
		case metrics.SuccessRate >= increaseRateThreshold:
			metrics.AdaptiveLevel = minInt(metrics.AdaptiveLevel+adaptationStep, explorationCeiling)
		case metrics.SuccessRate < decreaseRateThreshold:
			metrics.AdaptiveLevel = maxInt(metrics.AdaptiveLevel-adaptationStep, explorationFloor)
		}
	}

	return c.store.WriteExplorationMetrics(ctx, userID, metrics)
}

// DetectPatternLock checks whether the preference weights have
// concentrated so far that discovery is starved. Recomputed fresh from
// the current weights on every call; there is no unlock persistence.
func DetectPatternLock(prefs *ComprehensivePreferences) PatternLockStatus {
	status := PatternLockStatus{ForceExplorationPercentage: defaultExplorationLevel}

	colorShare := topShare(colorWeights(prefs.FavoriteColors), 3)
	styleShare := topShare(styleWeights(prefs.StylePreferences), 2)
	status.TopColorShare = colorShare
	status.TopStyleShare = styleShare

	if len(prefs.FavoriteColors) >= 3 && len(prefs.StylePreferences) >= 2 &&
		colorShare > colorConcentrationLimit && styleShare > styleConcentrationLimit {
		status.Locked = true
		status.ForceExplorationPercentage = forcedExplorationLevel
		RecordPatternLock()
	}

	return status
}

func colorWeights(prefs []ColorPreference) []float64 {
	weights := make([]float64, 0, len(prefs))
	for _, p := range prefs {
		if p.Weight > 0 {
			weights = append(weights, p.Weight)
		}
	}
	return weights
}

func styleWeights(prefs []StylePreference) []float64 {
	weights := make([]float64, 0, len(prefs))
	for _, p := range prefs {
		if p.Weight > 0 {
			weights = append(weights, p.Weight)
		}
	}
	return weights
}

// topShare is the percentage of total weight held by the first n entries
// (inputs arrive ranked by descending weight).
func topShare(weights []float64, n int) float64 {
	var total, top float64
	for i, w := range weights {
		total += w
		if i < n {
			top += w
		}
	}
	if total == 0 {
		return 0
	}
	return top / total * 100
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
