// internal/personalization/antirepeat.go
// Anti-Repetition Cache: rolling per-dimension windows of recently shown
// color combinations, styles and occasions.

package personalization

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Retention windows per dimension.
const (
	combinationWindow = 30 * 24 * time.Hour
	styleWindow       = 15 * 24 * time.Hour
	occasionWindow    = 7 * 24 * time.Hour

	colorOverlapThreshold = 0.7
)

type AntiRepetitionTracker struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewAntiRepetitionTracker(store Store, logger zerolog.Logger) *AntiRepetitionTracker {
	return &AntiRepetitionTracker{
		store:  store,
		logger: logger.With().Str("component", "antirepeat").Logger(),
		now:    time.Now,
	}
}

// Get returns the user's cache, lazily creating an empty one. Read
// failures degrade to an empty cache.
func (t *AntiRepetitionTracker) Get(ctx context.Context, userID int64) *AntiRepetitionCache {
	cache, found, err := t.store.ReadAntiRepetitionCache(ctx, userID)
	if err != nil {
		t.logger.Warn().Err(err).Int64("user_id", userID).Msg("anti-repetition read failed, degrading to empty")
		RecordDegradedRead("antirepetition")
		return EmptyAntiRepetitionCache()
	}
	if !found {
		return EmptyAntiRepetitionCache()
	}
	return cache
}

// Record appends what was just shown and prunes each dimension's window
// before persisting. A write failure is logged and swallowed: the cache
// is best-effort.
func (t *AntiRepetitionTracker) Record(ctx context.Context, userID int64, candidate *OutfitCandidate) {
	cache := t.Get(ctx, userID)
	now := t.now()

	colors := candidate.Colors
	if len(colors) > 3 {
		colors = colors[:3]
	}
	if len(colors) >= 2 {
		canon := make([]string, 0, len(colors))
		for _, c := range colors {
			canon = append(canon, canonicalColor(c))
		}
		cache.ColorCombinations = append(cache.ColorCombinations, CachedCombination{Colors: canon, SeenAt: now})
	}
	if candidate.Style != "" {
		cache.Styles = append(cache.Styles, CachedToken{Value: canonicalStyle(candidate.Style), SeenAt: now})
	}
	if candidate.Occasion != "" {
		cache.Occasions = append(cache.Occasions, CachedToken{Value: strings.ToLower(candidate.Occasion), SeenAt: now})
	}

	prune(cache, now)

	if err := t.store.WriteAntiRepetitionCache(ctx, userID, cache); err != nil {
		t.logger.Warn().Err(err).Int64("user_id", userID).Msg("anti-repetition write failed")
	}
}

func prune(cache *AntiRepetitionCache, now time.Time) {
	combos := cache.ColorCombinations[:0]
	for _, c := range cache.ColorCombinations {
		if now.Sub(c.SeenAt) <= combinationWindow {
			combos = append(combos, c)
		}
	}
	cache.ColorCombinations = combos

	styles := cache.Styles[:0]
	for _, s := range cache.Styles {
		if now.Sub(s.SeenAt) <= styleWindow {
			styles = append(styles, s)
		}
	}
	cache.Styles = styles

	occasions := cache.Occasions[:0]
	for _, o := range cache.Occasions {
		if now.Sub(o.SeenAt) <= occasionWindow {
			occasions = append(occasions, o)
		}
	}
	cache.Occasions = occasions
}

// IsRepetitive flags a candidate only when it repeats on all three
// dimensions at once: color combination AND style AND occasion. The
// conjunction keeps the check conservative: true repeats, not merely
// similar outfits.
func IsRepetitive(candidate *OutfitCandidate, cache *AntiRepetitionCache, now time.Time) bool {
	return repeatsColors(candidate.Colors, cache, now) &&
		repeatsStyle(candidate.Style, cache, now) &&
		repeatsOccasion(candidate.Occasion, cache, now)
}

// repeatsColors checks for >=70% token overlap with any cached
// combination, measured against the larger of the two sets.
func repeatsColors(colors []string, cache *AntiRepetitionCache, now time.Time) bool {
	if len(colors) == 0 {
		return false
	}
	canon := make([]string, 0, len(colors))
	for _, c := range colors {
		canon = append(canon, canonicalColor(c))
	}

	for _, cached := range cache.ColorCombinations {
		if now.Sub(cached.SeenAt) > combinationWindow {
			continue
		}
		shared := 0
		for _, c := range canon {
			for _, cc := range cached.Colors {
				if c == cc {
					shared++
					break
				}
			}
		}
		larger := len(canon)
		if len(cached.Colors) > larger {
			larger = len(cached.Colors)
		}
		if larger > 0 && float64(shared)/float64(larger) >= colorOverlapThreshold {
			return true
		}
	}
	return false
}

func repeatsStyle(style string, cache *AntiRepetitionCache, now time.Time) bool {
	if style == "" {
		return false
	}
	canon := canonicalStyle(style)
	for _, cached := range cache.Styles {
		if now.Sub(cached.SeenAt) > styleWindow {
			continue
		}
		if strings.Contains(cached.Value, canon) || strings.Contains(canon, cached.Value) {
			return true
		}
	}
	return false
}

func repeatsOccasion(occasion string, cache *AntiRepetitionCache, now time.Time) bool {
	if occasion == "" {
		return false
	}
	o := strings.ToLower(occasion)
	for _, cached := range cache.Occasions {
		if now.Sub(cached.SeenAt) > occasionWindow {
			continue
		}
		if cached.Value == o {
			return true
		}
	}
	return false
}
