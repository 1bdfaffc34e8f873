// internal/personalization/aggregator.go
// Preference Aggregator: turns the raw interaction log into a weighted
// ComprehensivePreferences profile.

package personalization

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Signal weights. These live in one table so every feedback path and the
// aggregation agree on the value of an action.
const (
	weightWorn    = 5.0
	weightLiked   = 2.0
	weightIgnored = -0.5
)

// Bounded read windows per aggregation call.
const (
	likedReadLimit    = 100
	wornReadLimit     = 100
	ignoredReadLimit  = 50
	shoppingReadLimit = 50
)

// Price comfort defaults, pending a richer shopping signal.
const (
	defaultPriceMin = 500.0
	defaultPriceMax = 3000.0
)

type Aggregator struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewAggregator(store Store, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		store:  store,
		logger: logger.With().Str("component", "aggregator").Logger(),
		now:    time.Now,
	}
}

// Aggregate rebuilds the full preference profile from the interaction log.
// It never fails: any read error degrades to the empty profile (or an
// empty sub-analysis) so the recommendation pipeline keeps running in a
// non-personalized mode.
func (a *Aggregator) Aggregate(ctx context.Context, userID int64) *ComprehensivePreferences {
	prefs := EmptyPreferences()

	var (
		liked, worn, ignored, clicks []*InteractionRecord
	)

	// The four sub-analyses read disjoint interaction subsets, so the
	// reads fan out concurrently to bound latency.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		liked = a.readSafe(gctx, userID, KindLiked, likedReadLimit)
		return nil
	})
	g.Go(func() error {
		worn = a.readSafe(gctx, userID, KindWorn, wornReadLimit)
		return nil
	})
	g.Go(func() error {
		ignored = a.readSafe(gctx, userID, KindIgnoredSession, ignoredReadLimit)
		return nil
	})
	g.Go(func() error {
		clicks = a.readSafe(gctx, userID, KindShoppingClick, shoppingReadLimit)
		return nil
	})
	_ = g.Wait()

	now := a.now()

	// Real-time weight deltas applied by feedback between recomputations.
	stored, _, err := a.store.ReadPreferences(ctx, userID)
	if err != nil {
		a.logger.Warn().Err(err).Int64("user_id", userID).Msg("preference document read failed, ignoring real-time deltas")
		stored = nil
	}

	a.analyzeColors(prefs, liked, worn, ignored, stored, now)
	a.analyzeStyles(prefs, liked, worn, ignored, stored, now)
	a.analyzeSeasonal(prefs, liked, worn)
	a.analyzeShopping(prefs, clicks)

	prefs.TotalInteractions = len(liked) + len(worn) + len(ignored) + len(clicks)
	prefs.OverallConfidence = confidenceBand(prefs.TotalInteractions)

	return prefs
}

func (a *Aggregator) readSafe(ctx context.Context, userID int64, kind InteractionKind, limit int) []*InteractionRecord {
	records, err := a.store.ReadInteractions(ctx, userID, kind, limit)
	if err != nil {
		a.logger.Warn().Err(err).Int64("user_id", userID).Str("kind", string(kind)).Msg("interaction read failed, degrading to empty")
		RecordDegradedRead(string(kind))
		return nil
	}
	return records
}

// confidenceBand is the discrete confidence tier for a given interaction
// count. The bands deliberately create step behavior consumed downstream.
func confidenceBand(interactions int) int {
	switch {
	case interactions == 0:
		return 0
	case interactions < 10:
		return 20
	case interactions < 25:
		return 50
	case interactions < 50:
		return 75
	default:
		return 95
	}
}

type weightedFeature struct {
	weight    float64
	frequency int
	recency   float64
}

func (a *Aggregator) analyzeColors(prefs *ComprehensivePreferences, liked, worn, ignored []*InteractionRecord, stored *StoredPreferences, now time.Time) {
	features := map[string]*weightedFeature{}

	accumulate := func(color string, signal float64, at time.Time) {
		key := canonicalColor(color)
		if key == "" {
			return
		}
		rw := recencyWeight(at, now)
		f, ok := features[key]
		if !ok {
			f = &weightedFeature{}
			features[key] = f
		}
		f.weight += signal * rw
		f.frequency++
		if rw > f.recency {
			f.recency = rw
		}
	}

	for _, rec := range worn {
		if rec.Outfit == nil {
			continue
		}
		for _, c := range rec.Outfit.Colors {
			accumulate(c, weightWorn, rec.CreatedAt)
		}
	}
	for _, rec := range liked {
		if rec.Outfit == nil {
			continue
		}
		for _, c := range rec.Outfit.Colors {
			accumulate(c, weightLiked, rec.CreatedAt)
		}
	}
	for _, rec := range ignored {
		for _, outfit := range rec.Outfits {
			for _, c := range outfit.Colors {
				accumulate(c, weightIgnored, rec.CreatedAt)
			}
		}
	}

	if stored != nil {
		for color, delta := range stored.ColorWeights {
			key := canonicalColor(color)
			f, ok := features[key]
			if !ok {
				f = &weightedFeature{recency: 1.0}
				features[key] = f
			}
			f.weight += delta
		}
	}

	all := make([]ColorPreference, 0, len(features))
	for color, f := range features {
		all = append(all, ColorPreference{Color: color, Weight: f.weight, Frequency: f.frequency, RecencyWeight: f.recency})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Weight > all[j].Weight })

	for _, p := range all {
		if p.Weight > 0 && len(prefs.FavoriteColors) < 5 {
			prefs.FavoriteColors = append(prefs.FavoriteColors, p)
		}
	}

	// Dislikes: the five most negative, ordered by ascending severity.
	var negatives []ColorPreference
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Weight < 0 && len(negatives) < 5 {
			negatives = append(negatives, all[i])
		}
	}
	for i := len(negatives) - 1; i >= 0; i-- {
		prefs.DislikedColors = append(prefs.DislikedColors, negatives[i])
	}

	prefs.ProvenCombinations = provenCombinations(liked, worn)
	prefs.IntensityPreference = intensityPreference(prefs.FavoriteColors)
	prefs.TemperaturePreference = temperaturePreference(prefs.FavoriteColors)
}

// provenCombinations groups the top-3 colors of each liked/worn outfit
// (worn counted twice) and keeps combinations seen at least twice.
func provenCombinations(liked, worn []*InteractionRecord) []ColorCombination {
	counts := map[string]*ColorCombination{}

	add := func(outfit *OutfitSnapshot, n int) {
		colors := outfit.Colors
		if len(colors) > 3 {
			colors = colors[:3]
		}
		if len(colors) < 2 {
			return
		}
		key := combinationKey(colors)
		combo, ok := counts[key]
		if !ok {
			canon := make([]string, 0, len(colors))
			for _, c := range colors {
				canon = append(canon, canonicalColor(c))
			}
			combo = &ColorCombination{Key: key, Colors: canon}
			counts[key] = combo
		}
		combo.Count += n
	}

	for _, rec := range liked {
		if rec.Outfit != nil {
			add(rec.Outfit, 1)
		}
	}
	for _, rec := range worn {
		if rec.Outfit != nil {
			add(rec.Outfit, 2)
		}
	}

	var proven []ColorCombination
	for _, combo := range counts {
		if combo.Count >= 2 {
			proven = append(proven, *combo)
		}
	}
	sort.Slice(proven, func(i, j int) bool { return proven[i].Count > proven[j].Count })
	if len(proven) > 5 {
		proven = proven[:5]
	}
	return proven
}

func intensityPreference(favorites []ColorPreference) string {
	var sum float64
	var n int
	for _, p := range favorites {
		if c, ok := parseColor(p.Color); ok {
			sum += c.saturation()
			n++
		}
	}
	if n == 0 {
		return "balanced"
	}
	avg := sum / float64(n)
	switch {
	case avg > 0.7:
		return "vibrant"
	case avg < 0.4:
		return "muted"
	default:
		return "balanced"
	}
}

func temperaturePreference(favorites []ColorPreference) string {
	var sum float64
	var n int
	for _, p := range favorites {
		if c, ok := parseColor(p.Color); ok {
			sum += c.warmth()
			n++
		}
	}
	if n == 0 {
		return "neutral"
	}
	avg := sum / float64(n)
	switch {
	case avg > 0.3:
		return "warm"
	case avg < -0.3:
		return "cool"
	default:
		return "neutral"
	}
}

func (a *Aggregator) analyzeStyles(prefs *ComprehensivePreferences, liked, worn, ignored []*InteractionRecord, stored *StoredPreferences, now time.Time) {
	global := map[string]*weightedFeature{}
	byOccasion := map[string]map[string]*weightedFeature{}

	accumulate := func(outfit *OutfitSnapshot, signal float64, at time.Time) {
		key := canonicalStyle(outfit.Style)
		if key == "" {
			return
		}
		rw := recencyWeight(at, now)

		f, ok := global[key]
		if !ok {
			f = &weightedFeature{}
			global[key] = f
		}
		f.weight += signal * rw
		f.frequency++

		bucket := occasionBucket(outfit.Occasion)
		if byOccasion[bucket] == nil {
			byOccasion[bucket] = map[string]*weightedFeature{}
		}
		bf, ok := byOccasion[bucket][key]
		if !ok {
			bf = &weightedFeature{}
			byOccasion[bucket][key] = bf
		}
		bf.weight += signal * rw
		bf.frequency++
	}

	for _, rec := range worn {
		if rec.Outfit != nil {
			accumulate(rec.Outfit, weightWorn, rec.CreatedAt)
		}
	}
	for _, rec := range liked {
		if rec.Outfit != nil {
			accumulate(rec.Outfit, weightLiked, rec.CreatedAt)
		}
	}
	for _, rec := range ignored {
		for i := range rec.Outfits {
			accumulate(&rec.Outfits[i], weightIgnored, rec.CreatedAt)
		}
	}

	if stored != nil {
		for style, delta := range stored.StyleWeights {
			key := canonicalStyle(style)
			f, ok := global[key]
			if !ok {
				f = &weightedFeature{}
				global[key] = f
			}
			f.weight += delta
		}
	}

	prefs.StylePreferences = rankStyles(global, 0)
	for bucket, features := range byOccasion {
		prefs.OccasionStyles[bucket] = rankStyles(features, 5)
	}
	prefs.StyleConsistency = styleConsistency(prefs.StylePreferences)
}

// rankStyles sorts by descending weight; limit 0 keeps everything.
func rankStyles(features map[string]*weightedFeature, limit int) []StylePreference {
	ranked := make([]StylePreference, 0, len(features))
	for style, f := range features {
		ranked = append(ranked, StylePreference{Style: style, Weight: f.weight, Frequency: f.frequency})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Weight > ranked[j].Weight })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// styleConsistency is the share of total style weight held by the top 3,
// as a percentage.
func styleConsistency(styles []StylePreference) float64 {
	var total, top float64
	for i, s := range styles {
		if s.Weight <= 0 {
			continue
		}
		total += s.Weight
		if i < 3 {
			top += s.Weight
		}
	}
	if total == 0 {
		return 0
	}
	return top / total * 100
}

func (a *Aggregator) analyzeSeasonal(prefs *ComprehensivePreferences, liked, worn []*InteractionRecord) {
	type freqMaps struct {
		colors, fabrics, styles map[string]int
	}
	buckets := map[Season]*freqMaps{}

	accumulate := func(outfit *OutfitSnapshot, at time.Time) {
		// Bucketed by the month of the interaction, not of aggregation.
		for _, season := range seasonsOfMonth(at.Month()) {
			fm, ok := buckets[season]
			if !ok {
				fm = &freqMaps{colors: map[string]int{}, fabrics: map[string]int{}, styles: map[string]int{}}
				buckets[season] = fm
			}
			for _, c := range outfit.Colors {
				fm.colors[canonicalColor(c)]++
			}
			if outfit.Fabric != "" {
				fm.fabrics[canonicalStyle(outfit.Fabric)]++
			}
			if outfit.Style != "" {
				fm.styles[canonicalStyle(outfit.Style)]++
			}
		}
	}

	for _, rec := range liked {
		if rec.Outfit != nil {
			accumulate(rec.Outfit, rec.CreatedAt)
		}
	}
	for _, rec := range worn {
		if rec.Outfit != nil {
			accumulate(rec.Outfit, rec.CreatedAt)
		}
	}

	for season, fm := range buckets {
		prefs.Seasonal[season] = SeasonalPreferences{
			Colors:  topKeys(fm.colors, 5),
			Fabrics: topKeys(fm.fabrics, 3),
			Styles:  topKeys(fm.styles, 3),
		}
	}
}

func topKeys(freq map[string]int, limit int) []string {
	type kv struct {
		key   string
		count int
	}
	ranked := make([]kv, 0, len(freq))
	for k, v := range freq {
		ranked = append(ranked, kv{k, v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].key < ranked[j].key
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	keys := make([]string, 0, len(ranked))
	for _, r := range ranked {
		keys = append(keys, r.key)
	}
	return keys
}

func (a *Aggregator) analyzeShopping(prefs *ComprehensivePreferences, clicks []*InteractionRecord) {
	prefs.Shopping.PriceMin = defaultPriceMin
	prefs.Shopping.PriceMax = defaultPriceMax

	if len(clicks) == 0 {
		return
	}

	counts := map[string]int{}
	for _, rec := range clicks {
		counts[rec.Platform]++
	}
	prefs.Shopping.TotalClicks = len(clicks)
	for platform, n := range counts {
		prefs.Shopping.PreferredPlatforms[platform] = float64(n) / float64(len(clicks)) * 100
	}
}
