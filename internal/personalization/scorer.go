// internal/personalization/scorer.go
// Match Scorer: deterministic 0-100 scoring of one candidate against the
// aggregated preferences and blocklists.

package personalization

import (
	"fmt"
	"math"
	"strings"
)

// Sub-score weights.
const (
	colorWeight    = 0.35
	styleWeight    = 0.30
	occasionWeight = 0.20
	seasonalWeight = 0.15
)

// Blocklist penalties applied after the weighted sum, order-independent.
const (
	hardBlockPenalty    = 40.0
	softBlockPenalty    = 20.0
	tempOverlapPenalty  = 10.0
	neutralScore        = 50.0
	dislikedColorScore  = 20.0
	dislikedStyleScore  = 20.0
	genericStyleScore   = 60.0
	defaultOccasionFit  = 70.0
	seasonalStyleHit    = 90.0
	seasonalStyleMiss   = 60.0
)

var commonStyleKeywords = []string{
	"casual", "formal", "ethnic", "sporty", "bohemian", "streetwear",
	"minimalist", "vintage", "chic", "classic", "fusion",
}

// Score evaluates a candidate. Pure function of its inputs plus the
// current season; it never touches storage.
func Score(candidate *OutfitCandidate, prefs *ComprehensivePreferences, lists *Blocklists, season Season) *OutfitMatch {
	breakdown := MatchBreakdown{
		ColorMatch:    colorMatchScore(candidate, prefs),
		StyleMatch:    styleMatchScore(candidate, prefs),
		OccasionMatch: occasionMatchScore(candidate, prefs),
		SeasonalMatch: seasonalMatchScore(candidate, prefs, season),
	}

	score := colorWeight*breakdown.ColorMatch +
		styleWeight*breakdown.StyleMatch +
		occasionWeight*breakdown.OccasionMatch +
		seasonalWeight*breakdown.SeasonalMatch

	score -= blocklistPenalty(candidate, lists)
	score = math.Max(0, math.Min(100, score))

	final := int(math.Round(score))
	match := &OutfitMatch{
		Candidate:  candidate,
		MatchScore: final,
		Breakdown:  breakdown,
		Category:   categorize(final),
	}
	match.Explanation = explain(match, prefs)

	RecordMatchScore(float64(final))
	return match
}

func categorize(score int) MatchCategory {
	switch {
	case score >= 90:
		return CategoryPerfect
	case score >= 70:
		return CategoryGreat
	default:
		return CategoryExploring
	}
}

// colorMatchScore averages per-color scores: a favorite contributes its
// weight x10 (capped 100), a dislike 20, anything else neutral 50.
func colorMatchScore(candidate *OutfitCandidate, prefs *ComprehensivePreferences) float64 {
	if len(candidate.Colors) == 0 {
		return neutralScore
	}

	var total float64
	for _, color := range candidate.Colors {
		total += singleColorScore(color, prefs)
	}
	return total / float64(len(candidate.Colors))
}

func singleColorScore(color string, prefs *ComprehensivePreferences) float64 {
	for _, fav := range prefs.FavoriteColors {
		if colorsMatch(fav.Color, color) {
			return math.Min(fav.Weight*10, 100)
		}
	}
	for _, dis := range prefs.DislikedColors {
		if colorsMatch(dis.Color, color) {
			return dislikedColorScore
		}
	}
	return neutralScore
}

func styleMatchScore(candidate *OutfitCandidate, prefs *ComprehensivePreferences) float64 {
	if candidate.Style == "" {
		return neutralScore
	}

	for _, pref := range prefs.StylePreferences {
		if !stylesMatch(pref.Style, candidate.Style) {
			continue
		}
		if pref.Weight > 0 {
			return math.Min(100, pref.Weight*10)
		}
		if pref.Weight < 0 {
			return dislikedStyleScore
		}
	}
	for _, keyword := range commonStyleKeywords {
		if stylesMatch(keyword, candidate.Style) {
			return genericStyleScore
		}
	}
	return neutralScore
}

// occasionMatchScore averages the occasion-bucketed style weights.
// A bucket with no data defaults to 70: occasion mismatch is low-risk.
func occasionMatchScore(candidate *OutfitCandidate, prefs *ComprehensivePreferences) float64 {
	bucket := occasionBucket(candidate.Occasion)
	styles := prefs.OccasionStyles[bucket]
	if len(styles) == 0 {
		return defaultOccasionFit
	}

	var total float64
	for _, s := range styles {
		total += math.Min(s.Weight*10, 100)
	}
	return total / float64(len(styles))
}

// seasonalMatchScore averages the candidate's color overlap with the
// current season's preferred colors and a style hit/miss component.
// Without seasonal data the dimension is neutral.
func seasonalMatchScore(candidate *OutfitCandidate, prefs *ComprehensivePreferences, season Season) float64 {
	seasonal, ok := prefs.Seasonal[season]
	if !ok || (len(seasonal.Colors) == 0 && len(seasonal.Styles) == 0) {
		return neutralScore
	}

	colorComponent := neutralScore
	if len(candidate.Colors) > 0 && len(seasonal.Colors) > 0 {
		hits := 0
		for _, color := range candidate.Colors {
			for _, sc := range seasonal.Colors {
				if colorsMatch(sc, color) {
					hits++
					break
				}
			}
		}
		colorComponent = float64(hits) / float64(len(candidate.Colors)) * 100
	}

	styleComponent := seasonalStyleMiss
	for _, s := range seasonal.Styles {
		if stylesMatch(s, candidate.Style) {
			styleComponent = seasonalStyleHit
			break
		}
	}

	return (colorComponent + styleComponent) / 2
}

func blocklistPenalty(candidate *OutfitCandidate, lists *Blocklists) float64 {
	var penalty float64

	for _, color := range candidate.Colors {
		if IsHardBlocked(lists, DimensionColor, color) {
			penalty += hardBlockPenalty
		} else if SoftBlockWeight(lists, DimensionColor, color) < 1.0 {
			penalty += softBlockPenalty
		}
	}
	if candidate.Style != "" {
		if IsHardBlocked(lists, DimensionStyle, candidate.Style) {
			penalty += hardBlockPenalty
		} else if SoftBlockWeight(lists, DimensionStyle, candidate.Style) < 1.0 {
			penalty += softBlockPenalty
		}
	}

	// Substring containment either way catches partial combination
	// overlap with still-active temporary blocks.
	key := combinationKey(candidate.Colors)
	if key != "" {
		for _, item := range lists.Temporary {
			if containsEither(item.Combination, key) {
				penalty += tempOverlapPenalty
			}
		}
	}

	return penalty
}

func containsEither(a, b string) bool {
	return a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a))
}

// explain builds the presentation text. It references whichever sub-score
// dominates and the user's top favorites by name; it never feeds back
// into the numeric score.
func explain(match *OutfitMatch, prefs *ComprehensivePreferences) string {
	topColor := ""
	if len(prefs.FavoriteColors) > 0 {
		topColor = prefs.FavoriteColors[0].Color
	}
	topStyle := ""
	if len(prefs.StylePreferences) > 0 {
		topStyle = prefs.StylePreferences[0].Style
	}

	b := match.Breakdown
	dominant := "color"
	best := b.ColorMatch
	if b.StyleMatch > best {
		dominant, best = "style", b.StyleMatch
	}
	if b.OccasionMatch > best {
		dominant, best = "occasion", b.OccasionMatch
	}
	if b.SeasonalMatch > best {
		dominant = "seasonal"
	}

	switch match.Category {
	case CategoryPerfect:
		if dominant == "color" && topColor != "" {
			return fmt.Sprintf("A near-perfect match built around your favorite %s tones", topColor)
		}
		if topStyle != "" {
			return fmt.Sprintf("A near-perfect match for your %s style", topStyle)
		}
		return "A near-perfect match for your taste"
	case CategoryGreat:
		if dominant == "style" && topStyle != "" {
			return fmt.Sprintf("A strong fit with the %s looks you usually go for", topStyle)
		}
		if topColor != "" {
			return fmt.Sprintf("A strong fit, close to your usual %s palette", topColor)
		}
		return "A strong fit for your recent picks"
	default:
		if dominant == "seasonal" {
			return "Something seasonal to try outside your usual picks"
		}
		return "Something new to explore outside your usual picks"
	}
}
