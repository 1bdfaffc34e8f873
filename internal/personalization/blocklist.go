// internal/personalization/blocklist.go
// Blocklist Manager: the three-tier negative-preference model.
// Hard = permanent explicit veto, soft = accumulating deprioritization,
// temporary = time-boxed anti-repetition (30-day default).

package personalization

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTemporaryTTLDays = 30
	promotionThreshold      = 10
	promotionReason         = "Consistently ignored (10+ times)"
	sessionShareThreshold   = 0.7
)

type BlocklistManager struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewBlocklistManager(store Store, logger zerolog.Logger) *BlocklistManager {
	return &BlocklistManager{
		store:  store,
		logger: logger.With().Str("component", "blocklist").Logger(),
		now:    time.Now,
	}
}

// Get returns the user's blocklists with expired temporary entries
// filtered out. Read failures degrade to empty lists.
func (m *BlocklistManager) Get(ctx context.Context, userID int64) *Blocklists {
	lists, found, err := m.store.ReadBlocklists(ctx, userID)
	if err != nil {
		m.logger.Warn().Err(err).Int64("user_id", userID).Msg("blocklist read failed, degrading to empty")
		RecordDegradedRead("blocklists")
		return EmptyBlocklists()
	}
	if !found {
		return EmptyBlocklists()
	}

	// Lazy expiry: stale temporary entries are skipped on read; the
	// cleanup sweep persists the pruned list.
	lists.Temporary = activeTemporary(lists.Temporary, m.now())
	return lists
}

func activeTemporary(items []TemporaryBlockItem, now time.Time) []TemporaryBlockItem {
	active := make([]TemporaryBlockItem, 0, len(items))
	for _, item := range items {
		if item.ExpiresAt.After(now) {
			active = append(active, item)
		}
	}
	return active
}

// getForUpdate reads the current lists ahead of a mutation. Unlike Get
// it propagates read failures: writing a defaulted document back over
// live state would erase the user's standing vetoes.
func (m *BlocklistManager) getForUpdate(ctx context.Context, userID int64) (*Blocklists, error) {
	lists, found, err := m.store.ReadBlocklists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("blocklist read for update: %w", err)
	}
	if !found {
		return EmptyBlocklists(), nil
	}
	lists.Temporary = activeTemporary(lists.Temporary, m.now())
	return lists, nil
}

func (m *BlocklistManager) AddHard(ctx context.Context, userID int64, dimension, value, reason string) error {
	lists, err := m.getForUpdate(ctx, userID)
	if err != nil {
		return err
	}

	item := BlocklistItem{Value: canonicalFor(dimension)(value), Reason: reason, AddedAt: m.now()}
	switch dimension {
	case DimensionColor:
		lists.HardColors = appendUnique(lists.HardColors, item)
		lists.SoftColors = removeValue(lists.SoftColors, item.Value)
	case DimensionStyle:
		lists.HardStyles = appendUnique(lists.HardStyles, item)
		lists.SoftStyles = removeValue(lists.SoftStyles, item.Value)
	case DimensionPattern:
		lists.HardPatterns = appendUnique(lists.HardPatterns, item)
	case DimensionFit:
		lists.HardFits = appendUnique(lists.HardFits, item)
	default:
		return fmt.Errorf("unknown blocklist dimension %q", dimension)
	}

	return m.store.WriteBlocklists(ctx, userID, lists)
}

func (m *BlocklistManager) RemoveHard(ctx context.Context, userID int64, dimension, value string) error {
	lists, err := m.getForUpdate(ctx, userID)
	if err != nil {
		return err
	}

	canon := canonicalFor(dimension)(value)
	switch dimension {
	case DimensionColor:
		lists.HardColors = removeValue(lists.HardColors, canon)
	case DimensionStyle:
		lists.HardStyles = removeValue(lists.HardStyles, canon)
	case DimensionPattern:
		lists.HardPatterns = removeValue(lists.HardPatterns, canon)
	case DimensionFit:
		lists.HardFits = removeValue(lists.HardFits, canon)
	default:
		return fmt.Errorf("unknown blocklist dimension %q", dimension)
	}

	return m.store.WriteBlocklists(ctx, userID, lists)
}

// AddOrIncrementSoft bumps the ignore count for a value, creating the
// entry on first sight. Values already hard-blocked are skipped so a
// value never sits in both tiers.
func (m *BlocklistManager) AddOrIncrementSoft(ctx context.Context, userID int64, dimension, value string, n int) error {
	if n <= 0 {
		n = 1
	}
	lists, err := m.getForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	if IsHardBlocked(lists, dimension, value) {
		return nil
	}

	canon := canonicalFor(dimension)(value)
	switch dimension {
	case DimensionColor:
		lists.SoftColors = incrementSoft(lists.SoftColors, canon, n, m.now())
	case DimensionStyle:
		lists.SoftStyles = incrementSoft(lists.SoftStyles, canon, n, m.now())
	default:
		return fmt.Errorf("soft blocklist does not track dimension %q", dimension)
	}

	if err := m.store.WriteBlocklists(ctx, userID, lists); err != nil {
		return err
	}
	return m.PromoteSoftToHard(ctx, userID)
}

func (m *BlocklistManager) AddTemporary(ctx context.Context, userID int64, colors []string, styleKeywords []string, ttlDays int) error {
	if len(colors) < 2 {
		return nil
	}
	if ttlDays <= 0 {
		ttlDays = defaultTemporaryTTLDays
	}

	lists, err := m.getForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	now := m.now()
	lists.Temporary = append(lists.Temporary, TemporaryBlockItem{
		Combination:   combinationKey(colors),
		StyleKeywords: styleKeywords,
		RecommendedAt: now,
		ExpiresAt:     now.Add(time.Duration(ttlDays) * 24 * time.Hour),
	})

	return m.store.WriteBlocklists(ctx, userID, lists)
}

// PromoteSoftToHard moves every soft entry that reached the promotion
// threshold into the hard tier. Idempotent: hard entries are deduped by
// value and promoted entries leave the soft tier.
func (m *BlocklistManager) PromoteSoftToHard(ctx context.Context, userID int64) error {
	lists, err := m.getForUpdate(ctx, userID)
	if err != nil {
		return err
	}

	promoted := false
	promote := func(soft []BlocklistItem, hard []BlocklistItem) ([]BlocklistItem, []BlocklistItem) {
		remaining := make([]BlocklistItem, 0, len(soft))
		for _, item := range soft {
			if item.Count >= promotionThreshold {
				hard = appendUnique(hard, BlocklistItem{Value: item.Value, Reason: promotionReason, AddedAt: m.now()})
				promoted = true
				continue
			}
			remaining = append(remaining, item)
		}
		return remaining, hard
	}

	lists.SoftColors, lists.HardColors = promote(lists.SoftColors, lists.HardColors)
	lists.SoftStyles, lists.HardStyles = promote(lists.SoftStyles, lists.HardStyles)

	if !promoted {
		return nil
	}
	RecordPromotion()
	return m.store.WriteBlocklists(ctx, userID, lists)
}

// AnalyzeIgnoredSession soft-blocks features shared by at least 70% of a
// batch of outfits the user ignored together. This is how one bad session
// nudges future scoring without an explicit user action.
func (m *BlocklistManager) AnalyzeIgnoredSession(ctx context.Context, userID int64, outfits []OutfitSnapshot) error {
	if len(outfits) < 2 {
		return nil
	}

	colorCounts := map[string]int{}
	styleCounts := map[string]int{}
	for _, outfit := range outfits {
		seen := map[string]bool{}
		for _, c := range outfit.Colors {
			key := canonicalColor(c)
			if key != "" && !seen[key] {
				colorCounts[key]++
				seen[key] = true
			}
		}
		if s := canonicalStyle(outfit.Style); s != "" {
			styleCounts[s]++
		}
	}

	threshold := int(float64(len(outfits))*sessionShareThreshold + 0.9999)
	for color, n := range colorCounts {
		if n >= threshold {
			if err := m.AddOrIncrementSoft(ctx, userID, DimensionColor, color, 1); err != nil {
				return err
			}
		}
	}
	for style, n := range styleCounts {
		if n >= threshold {
			if err := m.AddOrIncrementSoft(ctx, userID, DimensionStyle, style, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// CleanupExpired persists the lazily pruned temporary list.
func (m *BlocklistManager) CleanupExpired(ctx context.Context, userID int64) error {
	lists, err := m.getForUpdate(ctx, userID)
	if err != nil {
		return err
	}
	return m.store.WriteBlocklists(ctx, userID, lists)
}

// Predicates. These are pure functions of the list state so the scorer
// can use them without touching storage.

func IsHardBlocked(lists *Blocklists, dimension, value string) bool {
	var items []BlocklistItem
	match := colorsMatch
	switch dimension {
	case DimensionColor:
		items = lists.HardColors
	case DimensionStyle:
		items, match = lists.HardStyles, stylesMatch
	case DimensionPattern:
		items, match = lists.HardPatterns, stylesMatch
	case DimensionFit:
		items, match = lists.HardFits, stylesMatch
	}
	for _, item := range items {
		if match(item.Value, value) {
			return true
		}
	}
	return false
}

// SoftBlockWeight is the multiplicative penalty for a soft-blocked value:
// 1.0 when untracked, then 0.5 / 0.3 / 0.1 as the ignore count grows.
func SoftBlockWeight(lists *Blocklists, dimension, value string) float64 {
	var items []BlocklistItem
	match := colorsMatch
	switch dimension {
	case DimensionColor:
		items = lists.SoftColors
	case DimensionStyle:
		items, match = lists.SoftStyles, stylesMatch
	default:
		return 1.0
	}

	for _, item := range items {
		if match(item.Value, value) {
			switch {
			case item.Count >= 10:
				return 0.1
			case item.Count >= 5:
				return 0.3
			default:
				return 0.5
			}
		}
	}
	return 1.0
}

// WasRecentlyRecommended reports whether this exact color combination is
// still inside a temporary-block window.
func WasRecentlyRecommended(lists *Blocklists, colors []string, now time.Time) bool {
	key := combinationKey(colors)
	for _, item := range lists.Temporary {
		if item.Combination == key && item.ExpiresAt.After(now) {
			return true
		}
	}
	return false
}

// PassesFilters is the hard gate: any hard-blocked color or style, or an
// exact non-expired temporary match, fails the candidate outright.
func PassesFilters(lists *Blocklists, candidate *OutfitCandidate, now time.Time) (bool, string) {
	for _, color := range candidate.Colors {
		if IsHardBlocked(lists, DimensionColor, color) {
			return false, fmt.Sprintf("color %q is blocked", color)
		}
	}
	if candidate.Style != "" && IsHardBlocked(lists, DimensionStyle, candidate.Style) {
		return false, fmt.Sprintf("style %q is blocked", candidate.Style)
	}
	if WasRecentlyRecommended(lists, candidate.Colors, now) {
		return false, "color combination was recently recommended"
	}
	return true, ""
}

// ScoreWithSoftPenalties compounds the soft weights multiplicatively over
// the candidate's colors then style.
func ScoreWithSoftPenalties(lists *Blocklists, base float64, candidate *OutfitCandidate) float64 {
	score := base
	for _, color := range candidate.Colors {
		score *= SoftBlockWeight(lists, DimensionColor, color)
	}
	if candidate.Style != "" {
		score *= SoftBlockWeight(lists, DimensionStyle, candidate.Style)
	}
	return score
}

// Helpers

func canonicalFor(dimension string) func(string) string {
	if dimension == DimensionColor {
		return canonicalColor
	}
	return canonicalStyle
}

func appendUnique(items []BlocklistItem, item BlocklistItem) []BlocklistItem {
	for _, existing := range items {
		if existing.Value == item.Value {
			return items
		}
	}
	return append(items, item)
}

func removeValue(items []BlocklistItem, value string) []BlocklistItem {
	kept := make([]BlocklistItem, 0, len(items))
	for _, item := range items {
		if item.Value != value {
			kept = append(kept, item)
		}
	}
	return kept
}

func incrementSoft(items []BlocklistItem, value string, n int, now time.Time) []BlocklistItem {
	for i := range items {
		if items[i].Value == value {
			items[i].Count += n
			return items
		}
	}
	return append(items, BlocklistItem{Value: value, Reason: "repeatedly ignored", AddedAt: now, Count: n})
}
