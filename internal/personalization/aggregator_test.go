package personalization

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)

func newTestAggregator(store Store) *Aggregator {
	agg := NewAggregator(store, zerolog.Nop())
	agg.now = func() time.Time { return testNow }
	return agg
}

func wornRecord(userID int64, outfit OutfitSnapshot, at time.Time) *InteractionRecord {
	return &InteractionRecord{UserID: userID, Kind: KindWorn, Outfit: &outfit, CreatedAt: at}
}

func likedRecord(userID int64, outfit OutfitSnapshot, at time.Time) *InteractionRecord {
	return &InteractionRecord{UserID: userID, Kind: KindLiked, Outfit: &outfit, CreatedAt: at}
}

func TestConfidenceBands(t *testing.T) {
	cases := map[int]int{
		0:   0,
		1:   20,
		9:   20,
		10:  50,
		24:  50,
		25:  75,
		49:  75,
		50:  95,
		200: 95,
	}
	for interactions, want := range cases {
		assert.Equal(t, want, confidenceBand(interactions), "interactions=%d", interactions)
	}
}

func TestAggregateNewUser(t *testing.T) {
	agg := newTestAggregator(newFakeStore())

	prefs := agg.Aggregate(context.Background(), 1)

	assert.Equal(t, 0, prefs.OverallConfidence)
	assert.Equal(t, 0, prefs.TotalInteractions)
	assert.Empty(t, prefs.FavoriteColors)
	assert.Empty(t, prefs.DislikedColors)
	assert.Equal(t, "balanced", prefs.IntensityPreference)
	assert.Equal(t, "neutral", prefs.TemperaturePreference)
}

func TestAggregateEstablishedUser(t *testing.T) {
	store := newFakeStore()
	recent := testNow.Add(-10 * 24 * time.Hour)

	navyWhite := OutfitSnapshot{
		Colors:   []string{"navy blue", "white"},
		Style:    "formal",
		Occasion: "office",
		Fabric:   "wool",
	}
	navyOnly := OutfitSnapshot{
		Colors:   []string{"navy"},
		Style:    "formal",
		Occasion: "office",
		Fabric:   "wool",
	}
	for i := 0; i < 40; i++ {
		require.NoError(t, store.AppendInteraction(context.Background(), wornRecord(7, navyWhite, recent)))
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, store.AppendInteraction(context.Background(), wornRecord(7, navyOnly, recent)))
	}

	agg := newTestAggregator(store)
	prefs := agg.Aggregate(context.Background(), 7)

	assert.Equal(t, 95, prefs.OverallConfidence)
	assert.Equal(t, 60, prefs.TotalInteractions)

	require.NotEmpty(t, prefs.FavoriteColors)
	assert.Equal(t, "navy", prefs.FavoriteColors[0].Color)
	assert.InDelta(t, 300.0, prefs.FavoriteColors[0].Weight, 0.001, "60 wears x 5.0 at full recency")
	assert.Equal(t, 1.0, prefs.FavoriteColors[0].RecencyWeight)

	require.NotEmpty(t, prefs.StylePreferences)
	assert.Equal(t, "formal", prefs.StylePreferences[0].Style)

	require.Contains(t, prefs.OccasionStyles, OccasionOffice)
	assert.Equal(t, "formal", prefs.OccasionStyles[OccasionOffice][0].Style)

	// January interactions land in the winter bucket.
	require.Contains(t, prefs.Seasonal, SeasonWinter)
	assert.Contains(t, prefs.Seasonal[SeasonWinter].Colors, "navy")
	assert.Contains(t, prefs.Seasonal[SeasonWinter].Fabrics, "wool")
}

func TestAggregateRecencyDecay(t *testing.T) {
	store := newFakeStore()

	// Same action count: the recent color must outrank the stale one.
	recent := testNow.Add(-5 * 24 * time.Hour)
	stale := testNow.Add(-200 * 24 * time.Hour)
	for i := 0; i < 10; i++ {
		store.AppendInteraction(context.Background(), wornRecord(3, OutfitSnapshot{Colors: []string{"teal"}}, recent))
		store.AppendInteraction(context.Background(), wornRecord(3, OutfitSnapshot{Colors: []string{"coral"}}, stale))
	}

	prefs := newTestAggregator(store).Aggregate(context.Background(), 3)

	require.GreaterOrEqual(t, len(prefs.FavoriteColors), 2)
	assert.Equal(t, "teal", prefs.FavoriteColors[0].Color)
	assert.Equal(t, "coral", prefs.FavoriteColors[1].Color)
	assert.InDelta(t, 50.0, prefs.FavoriteColors[0].Weight, 0.001)
	assert.InDelta(t, 12.5, prefs.FavoriteColors[1].Weight, 0.001)
}

func TestAggregateDislikedColors(t *testing.T) {
	store := newFakeStore()
	at := testNow.Add(-2 * 24 * time.Hour)

	ignore := func(colors ...string) {
		outfits := []OutfitSnapshot{
			{Colors: colors},
			{Colors: colors},
		}
		store.AppendInteraction(context.Background(), &InteractionRecord{
			UserID: 4, Kind: KindIgnoredSession, Outfits: outfits, CreatedAt: at,
		})
	}
	ignore("orange")
	ignore("orange")
	ignore("orange")
	ignore("pink")

	prefs := newTestAggregator(store).Aggregate(context.Background(), 4)

	require.Len(t, prefs.DislikedColors, 2)
	// Ordered by ascending severity: the most-ignored color comes last.
	assert.Equal(t, "pink", prefs.DislikedColors[0].Color)
	assert.Equal(t, "orange", prefs.DislikedColors[1].Color)
	assert.Less(t, prefs.DislikedColors[1].Weight, prefs.DislikedColors[0].Weight)
}

func TestAggregateIgnoredSessionsDragStyleWeight(t *testing.T) {
	store := newFakeStore()
	at := testNow.Add(-2 * 24 * time.Hour)

	require.NoError(t, store.AppendInteraction(context.Background(), wornRecord(8, OutfitSnapshot{Colors: []string{"navy"}, Style: "formal"}, at)))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendInteraction(context.Background(), &InteractionRecord{
			UserID: 8, Kind: KindIgnoredSession, CreatedAt: at,
			Outfits: []OutfitSnapshot{
				{Colors: []string{"orange"}, Style: "sporty"},
				{Colors: []string{"pink"}, Style: "sporty"},
			},
		}))
	}

	prefs := newTestAggregator(store).Aggregate(context.Background(), 8)

	byStyle := map[string]StylePreference{}
	for _, s := range prefs.StylePreferences {
		byStyle[s.Style] = s
	}
	require.Contains(t, byStyle, "sporty")
	assert.InDelta(t, 6*weightIgnored, byStyle["sporty"].Weight, 0.001, "ignored outfits weigh the shared style down")
	assert.Greater(t, byStyle["formal"].Weight, 0.0)
}

func TestProvenCombinations(t *testing.T) {
	store := newFakeStore()
	at := testNow.Add(-3 * 24 * time.Hour)

	proven := OutfitSnapshot{Colors: []string{"navy", "white"}}
	oneOff := OutfitSnapshot{Colors: []string{"red", "green"}}

	store.AppendInteraction(context.Background(), wornRecord(5, proven, at))
	store.AppendInteraction(context.Background(), likedRecord(5, oneOff, at))

	prefs := newTestAggregator(store).Aggregate(context.Background(), 5)

	require.Len(t, prefs.ProvenCombinations, 1, "a single like never proves a combination")
	assert.Equal(t, "navy+white", prefs.ProvenCombinations[0].Key)
	assert.Equal(t, 2, prefs.ProvenCombinations[0].Count, "worn counts double")
}

func TestAggregateFoldsRealtimeDeltas(t *testing.T) {
	store := newFakeStore()
	store.prefs[9] = &StoredPreferences{
		ColorWeights: map[string]float64{"teal": 6},
		StyleWeights: map[string]float64{"boho": 4},
	}

	prefs := newTestAggregator(store).Aggregate(context.Background(), 9)

	require.NotEmpty(t, prefs.FavoriteColors)
	assert.Equal(t, "teal", prefs.FavoriteColors[0].Color)
	assert.InDelta(t, 6.0, prefs.FavoriteColors[0].Weight, 0.001)

	require.NotEmpty(t, prefs.StylePreferences)
	assert.Equal(t, "bohemian", prefs.StylePreferences[0].Style, "deltas canonicalize before folding")
}

func TestAggregateDegradesOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failReads = true

	prefs := newTestAggregator(store).Aggregate(context.Background(), 2)

	assert.Equal(t, 0, prefs.OverallConfidence)
	assert.Empty(t, prefs.FavoriteColors)
}

func TestAnalyzeShopping(t *testing.T) {
	store := newFakeStore()
	click := func(platform string) {
		store.AppendInteraction(context.Background(), &InteractionRecord{
			UserID: 6, Kind: KindShoppingClick, Platform: platform, CreatedAt: testNow,
		})
	}
	click("myntra")
	click("myntra")
	click("myntra")
	click("ajio")

	prefs := newTestAggregator(store).Aggregate(context.Background(), 6)

	assert.Equal(t, 4, prefs.Shopping.TotalClicks)
	assert.InDelta(t, 75.0, prefs.Shopping.PreferredPlatforms["myntra"], 0.001)
	assert.InDelta(t, 25.0, prefs.Shopping.PreferredPlatforms["ajio"], 0.001)
	assert.Equal(t, defaultPriceMin, prefs.Shopping.PriceMin)
	assert.Equal(t, defaultPriceMax, prefs.Shopping.PriceMax)
}

func TestStyleConsistency(t *testing.T) {
	styles := []StylePreference{
		{Style: "formal", Weight: 5},
		{Style: "casual", Weight: 2},
		{Style: "sporty", Weight: 2},
		{Style: "ethnic", Weight: 1},
	}
	assert.InDelta(t, 90.0, styleConsistency(styles), 0.001)
	assert.Equal(t, 0.0, styleConsistency(nil))
}
