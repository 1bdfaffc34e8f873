// internal/personalization/engine.go
// Engine facade consumed by the recommendation orchestrator: context
// assembly, score-and-diversify, and the feedback hooks.

package personalization

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

const (
	defaultSnapshotCacheSize    = 1024
	defaultSnapshotCacheTTL     = 5 * time.Minute
	defaultActiveUserWindowDays = 30

	// Score reduction applied when a repetitive candidate has to be
	// kept because too few alternatives remain.
	repetitionPenalty = 10
)

type EngineConfig struct {
	SnapshotCacheSize     int
	SnapshotCacheTTL      time.Duration
	TemporaryBlockTTLDays int
	ActiveUserWindowDays  int
}

// Engine owns the component wiring and the preference-snapshot cache.
// The cache is an explicit object with TTL and bounded LRU eviction so
// lifetime and invalidation stay visible at the interface.
type Engine struct {
	store       Store
	aggregator  *Aggregator
	blocklists  *BlocklistManager
	antiRepeat  *AntiRepetitionTracker
	exploration *ExplorationController
	snapshots   *expirable.LRU[int64, *ComprehensivePreferences]
	logger      zerolog.Logger
	now         func() time.Time

	tempBlockTTLDays     int
	activeUserWindowDays int
}

func NewEngine(store Store, logger zerolog.Logger, cfg EngineConfig) *Engine {
	if cfg.SnapshotCacheSize <= 0 {
		cfg.SnapshotCacheSize = defaultSnapshotCacheSize
	}
	if cfg.SnapshotCacheTTL <= 0 {
		cfg.SnapshotCacheTTL = defaultSnapshotCacheTTL
	}
	if cfg.TemporaryBlockTTLDays <= 0 {
		cfg.TemporaryBlockTTLDays = defaultTemporaryTTLDays
	}
	if cfg.ActiveUserWindowDays <= 0 {
		cfg.ActiveUserWindowDays = defaultActiveUserWindowDays
	}

	return &Engine{
		store:                store,
		aggregator:           NewAggregator(store, logger),
		blocklists:           NewBlocklistManager(store, logger),
		antiRepeat:           NewAntiRepetitionTracker(store, logger),
		exploration:          NewExplorationController(store, logger),
		snapshots:            expirable.NewLRU[int64, *ComprehensivePreferences](cfg.SnapshotCacheSize, nil, cfg.SnapshotCacheTTL),
		logger:               logger.With().Str("component", "engine").Logger(),
		now:                  time.Now,
		tempBlockTTLDays:     cfg.TemporaryBlockTTLDays,
		activeUserWindowDays: cfg.ActiveUserWindowDays,
	}
}

// Blocklists exposes the blocklist manager for the admin surface.
func (e *Engine) Blocklists() *BlocklistManager { return e.blocklists }

// Exploration exposes the exploration controller.
func (e *Engine) Exploration() *ExplorationController { return e.exploration }

// Preferences returns the aggregated profile, served from the snapshot
// cache when fresh.
func (e *Engine) Preferences(ctx context.Context, userID int64) *ComprehensivePreferences {
	if prefs, ok := e.snapshots.Get(userID); ok {
		return prefs
	}
	prefs := e.aggregator.Aggregate(ctx, userID)
	e.snapshots.Add(userID, prefs)
	return prefs
}

// GetPersonalizationContext bundles everything the orchestrator needs at
// the start of a recommendation cycle.
func (e *Engine) GetPersonalizationContext(ctx context.Context, userID int64, occasion string) *PersonalizationContext {
	return &PersonalizationContext{
		Preferences: e.Preferences(ctx, userID),
		Blocklists:  e.blocklists.Get(ctx, userID),
		Season:      CurrentSeason(e.now()),
		Occasion:    occasionBucket(occasion),
	}
}

// ScoreAndDiversify runs one full ranking cycle: score every candidate
// against the state read at the start of the request, drop hard-blocked
// and repetitive options, diversify, then record what was shown.
func (e *Engine) ScoreAndDiversify(ctx context.Context, userID int64, candidates []*OutfitCandidate) []*OutfitMatch {
	started := e.now()

	prefs := e.Preferences(ctx, userID)
	lists := e.blocklists.Get(ctx, userID)
	repCache := e.antiRepeat.Get(ctx, userID)
	season := CurrentSeason(started)

	var scored, repetitive []*OutfitMatch
	for _, candidate := range candidates {
		if pass, reason := PassesFilters(lists, candidate, started); !pass {
			e.logger.Debug().Int64("user_id", userID).Str("candidate", candidate.ID).Str("reason", reason).Msg("candidate filtered")
			RecordFiltered()
			continue
		}

		match := Score(candidate, prefs, lists, season)
		if IsRepetitive(candidate, repCache, started) {
			repetitive = append(repetitive, match)
			continue
		}
		scored = append(scored, match)
	}

	// Repetitive candidates are rejected outright only while enough
	// fresh alternatives remain; otherwise they come back with a score
	// reduction so the user still gets a full set.
	if len(scored) < 3 {
		for _, match := range repetitive {
			match.MatchScore = maxInt(0, match.MatchScore-repetitionPenalty)
			match.Category = categorize(match.MatchScore)
			scored = append(scored, match)
			if len(scored) >= 3 {
				break
			}
		}
	}

	// The controller's adaptive level sets how aggressive the discovery
	// slot is; a pattern lock overrides it with the forced level.
	level := e.exploration.GetMetrics(ctx, userID).AdaptiveLevel
	lock := DetectPatternLock(prefs)
	if lock.Locked {
		level = lock.ForceExplorationPercentage
		e.logger.Info().Int64("user_id", userID).
			Float64("color_share", lock.TopColorShare).
			Float64("style_share", lock.TopStyleShare).
			Msg("pattern lock detected, forcing wider exploration")
	}

	presented := Diversify(scored, level, e.logger)
	e.recordPresented(ctx, userID, presented)

	RecordCycleDuration(e.now().Sub(started))
	return presented
}

// recordPresented updates the anti-repetition cache and temporary
// blocklist with what was shown, and counts the exploration slot. All
// best-effort: a lost update only biases future ranking slightly.
func (e *Engine) recordPresented(ctx context.Context, userID int64, presented []*OutfitMatch) {
	for _, match := range presented {
		e.antiRepeat.Record(ctx, userID, match.Candidate)
		if err := e.blocklists.AddTemporary(ctx, userID, match.Candidate.Colors, []string{match.Candidate.Style}, e.tempBlockTTLDays); err != nil {
			e.logger.Warn().Err(err).Int64("user_id", userID).Msg("temporary block not recorded")
		}
	}

	// Position 3 is the deliberate exploration pick.
	if len(presented) == 3 {
		if err := e.exploration.RecordOutcome(ctx, userID, OutcomeShown); err != nil {
			e.logger.Warn().Err(err).Int64("user_id", userID).Msg("exploration shown not recorded")
		}
	}
}

// PatternLock reports the current lock status for a user.
func (e *Engine) PatternLock(ctx context.Context, userID int64) PatternLockStatus {
	return DetectPatternLock(e.Preferences(ctx, userID))
}

// RunMaintenance persists pruned temporary blocklists, applies the
// soft-to-hard promotion sweep, and folds the day's real-time weight
// deltas back into log-derived state for one user. Called by the
// scheduler.
func (e *Engine) RunMaintenance(ctx context.Context, userID int64) error {
	e.snapshots.Remove(userID)

	if err := e.blocklists.CleanupExpired(ctx, userID); err != nil {
		return err
	}
	if err := e.blocklists.PromoteSoftToHard(ctx, userID); err != nil {
		return err
	}
	return e.store.ClearWeightDeltas(ctx, userID)
}

// RunMaintenanceSweep runs maintenance for every recently active user.
func (e *Engine) RunMaintenanceSweep(ctx context.Context) error {
	userIDs, err := e.store.ActiveUserIDs(ctx, e.activeUserWindowDays)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		if err := e.RunMaintenance(ctx, userID); err != nil {
			e.logger.Warn().Err(err).Int64("user_id", userID).Msg("maintenance failed, continuing")
		}
	}
	return nil
}
