// internal/personalization/diversify.go
// Diversification Selector: the 70/20/10 exploit/explore placement with
// explicit fallback chains and graceful degradation.

package personalization

import (
	"sort"

	"github.com/rs/zerolog"
)

// flatScoreRange is the spread below which scores carry no real
// personalization signal.
const flatScoreRange = 5

// Diversify assigns scored candidates to the three output positions:
// a safe exploit, an adjacent variation and a deliberate exploration
// pick. explorationLevel is the controller's current percentage: it
// sets how deep the discovery slot digs into the exploring band, and
// at the forced level (pattern lock) a second slot turns exploratory.
// Fewer than 3 inputs is a degraded-input case, not an error: the
// input is passed through unchanged.
func Diversify(matches []*OutfitMatch, explorationLevel int, logger zerolog.Logger) []*OutfitMatch {
	if len(matches) < 3 {
		logger.Warn().Int("candidates", len(matches)).Msg("too few candidates to diversify, passing through")
		return matches
	}

	sorted := make([]*OutfitMatch, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MatchScore > sorted[j].MatchScore
	})

	// Near-equivalent scores mean the generator produced interchangeable
	// options (new or low-confidence user). Label the top three for
	// presentational variety instead of pretending the scores rank them.
	if sorted[0].MatchScore-sorted[len(sorted)-1].MatchScore <= flatScoreRange {
		out := sorted[:3]
		out[0].Category = CategoryPerfect
		out[1].Category = CategoryGreat
		out[2].Category = CategoryExploring
		RecordDiversification("flat")
		return out
	}

	var perfect, great, exploring, poor []*OutfitMatch
	for _, m := range sorted {
		switch {
		case m.MatchScore >= 90:
			perfect = append(perfect, m)
		case m.MatchScore >= 70:
			great = append(great, m)
		case m.MatchScore >= 50:
			exploring = append(exploring, m)
		default:
			poor = append(poor, m)
		}
	}

	// Higher exploration levels rotate deeper cuts of the exploring
	// band to the front, so the discovery slot is not always the
	// safest near-miss.
	if n := len(exploring); n > 1 {
		depth := n * explorationLevel / 100
		if depth >= n {
			depth = n - 1
		}
		exploring = append(exploring[depth:], exploring[:depth]...)
	}

	used := make(map[*OutfitMatch]bool, 3)
	pick := func(chains ...[]*OutfitMatch) *OutfitMatch {
		for _, chain := range chains {
			for _, m := range chain {
				if !used[m] {
					used[m] = true
					return m
				}
			}
		}
		return nil
	}

	// Each position falls back down its chain, ending at the overall
	// ranking so three distinct candidates are always produced. The
	// used-set makes "second perfect" / "second great" fall out of the
	// same chains.
	position1 := pick(perfect, great, sorted)

	// At the forced level the adjacent-variation slot also goes
	// exploratory, widening what a locked-in user gets to see.
	var position2 *OutfitMatch
	if explorationLevel >= forcedExplorationLevel {
		position2 = pick(exploring, poor, great, sorted)
	} else {
		position2 = pick(great, perfect, exploring, sorted)
	}
	position3 := pick(exploring, great, poor, sorted)

	RecordDiversification("bucketed")
	return []*OutfitMatch{position1, position2, position3}
}
