// internal/personalization/models.go
// Core data model for the personalization engine

package personalization

import (
	"time"
)

// InteractionKind tags an interaction record. Each kind carries only the
// fields relevant to it; the store adapter validates the pairing on write.
type InteractionKind string

const (
	KindLiked          InteractionKind = "liked"
	KindWorn           InteractionKind = "worn"
	KindIgnoredSession InteractionKind = "ignored_session"
	KindShoppingClick  InteractionKind = "shopping_click"
)

// OutfitSnapshot is the outfit's attributes frozen at interaction time.
type OutfitSnapshot struct {
	Colors   []string `json:"colors"`
	Style    string   `json:"style"`
	Occasion string   `json:"occasion"`
	Fabric   string   `json:"fabric,omitempty"`
	Items    []string `json:"items,omitempty"`
}

// InteractionRecord is an immutable fact about one user action.
// Outfit is set for liked/worn, Outfits for ignored sessions, Platform
// for shopping clicks.
type InteractionRecord struct {
	ID        string           `json:"id" db:"id"`
	UserID    int64            `json:"user_id" db:"user_id"`
	Kind      InteractionKind  `json:"kind" db:"kind"`
	Outfit    *OutfitSnapshot  `json:"outfit,omitempty"`
	Outfits   []OutfitSnapshot `json:"outfits,omitempty"`
	Platform  string           `json:"platform,omitempty"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// ColorPreference is a learned color affinity. Positive weight means the
// user gravitates toward the color, negative means they avoid it.
type ColorPreference struct {
	Color         string  `json:"color"`
	Weight        float64 `json:"weight"`
	Frequency     int     `json:"frequency"`
	RecencyWeight float64 `json:"recency_weight"`
}

type StylePreference struct {
	Style     string  `json:"style"`
	Weight    float64 `json:"weight"`
	Frequency int     `json:"frequency"`
}

// ColorCombination is a proven set of colors the user responded to
// together at least twice.
type ColorCombination struct {
	Key    string   `json:"key"`
	Colors []string `json:"colors"`
	Count  int      `json:"count"`
}

type Season string

const (
	SeasonSummer  Season = "summer"
	SeasonWinter  Season = "winter"
	SeasonMonsoon Season = "monsoon"
)

// SeasonalPreferences holds the per-season top colors, fabrics and styles.
type SeasonalPreferences struct {
	Colors  []string `json:"colors"`
	Fabrics []string `json:"fabrics"`
	Styles  []string `json:"styles"`
}

// ShoppingBehavior summarizes shopping-click signals. PreferredPlatforms
// maps platform name to its share of clicks in percent.
type ShoppingBehavior struct {
	PriceMin           float64            `json:"price_min"`
	PriceMax           float64            `json:"price_max"`
	PreferredPlatforms map[string]float64 `json:"preferred_platforms"`
	TotalClicks        int                `json:"total_clicks"`
}

// Occasion buckets used for style slicing.
const (
	OccasionCasual = "casual"
	OccasionOffice = "office"
	OccasionParty  = "party"
	OccasionEthnic = "ethnic"
)

// ComprehensivePreferences is the aggregate preference profile, rebuilt
// on demand from the interaction log.
type ComprehensivePreferences struct {
	FavoriteColors        []ColorPreference             `json:"favorite_colors"`
	DislikedColors        []ColorPreference             `json:"disliked_colors"`
	ProvenCombinations    []ColorCombination            `json:"proven_combinations"`
	IntensityPreference   string                        `json:"intensity_preference"`   // vibrant, muted, balanced
	TemperaturePreference string                        `json:"temperature_preference"` // warm, cool, neutral
	StylePreferences      []StylePreference             `json:"style_preferences"`
	OccasionStyles        map[string][]StylePreference  `json:"occasion_styles"`
	StyleConsistency      float64                       `json:"style_consistency"` // percent
	Seasonal              map[Season]SeasonalPreferences `json:"seasonal"`
	Shopping              ShoppingBehavior              `json:"shopping"`
	OverallConfidence     int                           `json:"overall_confidence"` // 0, 20, 50, 75, 95
	TotalInteractions     int                           `json:"total_interactions"`
}

// EmptyPreferences is the degraded, non-personalized profile returned when
// the store is unavailable or the user is new.
func EmptyPreferences() *ComprehensivePreferences {
	return &ComprehensivePreferences{
		FavoriteColors:        []ColorPreference{},
		DislikedColors:        []ColorPreference{},
		ProvenCombinations:    []ColorCombination{},
		IntensityPreference:   "balanced",
		TemperaturePreference: "neutral",
		StylePreferences:      []StylePreference{},
		OccasionStyles:        map[string][]StylePreference{},
		Seasonal:              map[Season]SeasonalPreferences{},
		Shopping:              ShoppingBehavior{PreferredPlatforms: map[string]float64{}},
		OverallConfidence:     0,
	}
}

// StoredPreferences is the durable preference document. ColorWeights and
// StyleWeights are the real-time weight maps incremented directly by
// feedback events between full recomputations.
type StoredPreferences struct {
	ColorWeights map[string]float64 `json:"color_weights"`
	StyleWeights map[string]float64 `json:"style_weights"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Blocklist dimensions.
const (
	DimensionColor   = "color"
	DimensionStyle   = "style"
	DimensionPattern = "pattern"
	DimensionFit     = "fit"
)

// BlocklistItem is one negative-preference entry. Count is only used on
// the soft tier to track repeated-ignore frequency.
type BlocklistItem struct {
	Value   string    `json:"value"`
	Reason  string    `json:"reason"`
	AddedAt time.Time `json:"added_at"`
	Count   int       `json:"count,omitempty"`
}

// TemporaryBlockItem is a time-boxed anti-repetition entry keyed by a
// color-combination fingerprint.
type TemporaryBlockItem struct {
	Combination   string    `json:"combination"`
	StyleKeywords []string  `json:"style_keywords,omitempty"`
	RecommendedAt time.Time `json:"recommended_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Blocklists is the three-tier negative-preference container.
// Invariant: a value appears in at most one of hard/soft per dimension;
// soft-to-hard promotion is one-directional.
type Blocklists struct {
	HardColors   []BlocklistItem      `json:"hard_colors"`
	HardStyles   []BlocklistItem      `json:"hard_styles"`
	HardPatterns []BlocklistItem      `json:"hard_patterns"`
	HardFits     []BlocklistItem      `json:"hard_fits"`
	SoftColors   []BlocklistItem      `json:"soft_colors"`
	SoftStyles   []BlocklistItem      `json:"soft_styles"`
	Temporary    []TemporaryBlockItem `json:"temporary"`
}

func EmptyBlocklists() *Blocklists {
	return &Blocklists{
		HardColors:   []BlocklistItem{},
		HardStyles:   []BlocklistItem{},
		HardPatterns: []BlocklistItem{},
		HardFits:     []BlocklistItem{},
		SoftColors:   []BlocklistItem{},
		SoftStyles:   []BlocklistItem{},
		Temporary:    []TemporaryBlockItem{},
	}
}

// OutfitCandidate is one generated outfit passed in by the candidate
// generator. The engine never creates these.
type OutfitCandidate struct {
	ID          string   `json:"id"`
	Colors      []string `json:"colors"`
	Style       string   `json:"style"`
	Occasion    string   `json:"occasion"`
	Fabric      string   `json:"fabric,omitempty"`
	Items       []string `json:"items,omitempty"`
	Description string   `json:"description,omitempty"`
}

type MatchCategory string

const (
	CategoryPerfect   MatchCategory = "perfect"
	CategoryGreat     MatchCategory = "great"
	CategoryExploring MatchCategory = "exploring"
)

// MatchBreakdown carries the four sub-scores before weighting.
type MatchBreakdown struct {
	ColorMatch    float64 `json:"color_match"`
	StyleMatch    float64 `json:"style_match"`
	OccasionMatch float64 `json:"occasion_match"`
	SeasonalMatch float64 `json:"seasonal_match"`
}

// OutfitMatch is the scored candidate. Ephemeral: exists only during one
// ranking cycle, never persisted.
type OutfitMatch struct {
	Candidate   *OutfitCandidate `json:"candidate"`
	MatchScore  int              `json:"match_score"` // 0-100
	Breakdown   MatchBreakdown   `json:"breakdown"`
	Category    MatchCategory    `json:"category"`
	Explanation string           `json:"explanation"`
}

// CachedCombination is one recently shown color combination.
type CachedCombination struct {
	Colors []string  `json:"colors"`
	SeenAt time.Time `json:"seen_at"`
}

// CachedToken is a recently shown style or occasion.
type CachedToken struct {
	Value  string    `json:"value"`
	SeenAt time.Time `json:"seen_at"`
}

// AntiRepetitionCache is the rolling record of what was recently shown.
// Retention windows: combinations 30d, styles 15d, occasions 7d.
type AntiRepetitionCache struct {
	ColorCombinations []CachedCombination `json:"color_combinations"`
	Styles            []CachedToken       `json:"styles"`
	Occasions         []CachedToken       `json:"occasions"`
}

func EmptyAntiRepetitionCache() *AntiRepetitionCache {
	return &AntiRepetitionCache{
		ColorCombinations: []CachedCombination{},
		Styles:            []CachedToken{},
		Occasions:         []CachedToken{},
	}
}

// ExplorationMetrics tracks outcomes of exploratory picks only.
// AdaptiveLevel is a percentage in [5,25].
type ExplorationMetrics struct {
	Shown         int       `json:"shown"`
	Liked         int       `json:"liked"`
	Worn          int       `json:"worn"`
	SuccessRate   float64   `json:"success_rate"` // percent
	AdaptiveLevel int       `json:"adaptive_level"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PatternLockStatus reports whether preferences have concentrated so far
// that discovery is starved. Derived fresh on each call, never persisted.
type PatternLockStatus struct {
	Locked                     bool    `json:"locked"`
	TopColorShare              float64 `json:"top_color_share"` // percent
	TopStyleShare              float64 `json:"top_style_share"` // percent
	ForceExplorationPercentage int     `json:"force_exploration_percentage"`
}

// PersonalizationContext is the bundle handed to the recommendation
// orchestrator at the start of a cycle.
type PersonalizationContext struct {
	Preferences *ComprehensivePreferences `json:"preferences"`
	Blocklists  *Blocklists               `json:"blocklists"`
	Season      Season                    `json:"season"`
	Occasion    string                    `json:"occasion,omitempty"`
}
