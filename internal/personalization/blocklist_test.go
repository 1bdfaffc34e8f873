package personalization

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlocklistManager(store Store) *BlocklistManager {
	m := NewBlocklistManager(store, zerolog.Nop())
	m.now = func() time.Time { return testNow }
	return m
}

func TestSoftBlockWeightSteps(t *testing.T) {
	lists := EmptyBlocklists()
	lists.SoftColors = []BlocklistItem{
		{Value: "orange", Count: 1},
		{Value: "pink", Count: 4},
		{Value: "yellow", Count: 5},
		{Value: "green", Count: 9},
		{Value: "purple", Count: 10},
	}

	assert.Equal(t, 1.0, SoftBlockWeight(lists, DimensionColor, "navy"), "untracked color carries no penalty")
	assert.Equal(t, 0.5, SoftBlockWeight(lists, DimensionColor, "orange"))
	assert.Equal(t, 0.5, SoftBlockWeight(lists, DimensionColor, "pink"))
	assert.Equal(t, 0.3, SoftBlockWeight(lists, DimensionColor, "yellow"))
	assert.Equal(t, 0.3, SoftBlockWeight(lists, DimensionColor, "green"))
	assert.Equal(t, 0.1, SoftBlockWeight(lists, DimensionColor, "purple"))
}

func TestIsHardBlockedMatchesVariants(t *testing.T) {
	lists := EmptyBlocklists()
	lists.HardColors = []BlocklistItem{{Value: "navy"}}

	assert.True(t, IsHardBlocked(lists, DimensionColor, "navy"))
	assert.True(t, IsHardBlocked(lists, DimensionColor, "Navy Blue"), "synonyms hit the same entry")
	assert.False(t, IsHardBlocked(lists, DimensionColor, "red"))
	assert.False(t, IsHardBlocked(lists, DimensionStyle, "navy"))
}

func TestPassesFiltersHardGate(t *testing.T) {
	lists := EmptyBlocklists()
	lists.HardColors = []BlocklistItem{{Value: "red"}}
	lists.HardStyles = []BlocklistItem{{Value: "sporty"}}

	pass, _ := PassesFilters(lists, &OutfitCandidate{Colors: []string{"navy", "white"}, Style: "formal"}, testNow)
	assert.True(t, pass)

	pass, reason := PassesFilters(lists, &OutfitCandidate{Colors: []string{"navy", "red"}, Style: "formal"}, testNow)
	assert.False(t, pass, "one blocked color fails the whole candidate")
	assert.Contains(t, reason, "red")

	pass, _ = PassesFilters(lists, &OutfitCandidate{Colors: []string{"navy"}, Style: "athleisure"}, testNow)
	assert.False(t, pass, "style synonyms resolve before the gate")
}

func TestPassesFiltersTemporaryBlock(t *testing.T) {
	lists := EmptyBlocklists()
	lists.Temporary = []TemporaryBlockItem{{
		Combination: combinationKey([]string{"navy", "white"}),
		ExpiresAt:   testNow.Add(24 * time.Hour),
	}}

	pass, _ := PassesFilters(lists, &OutfitCandidate{Colors: []string{"white", "navy"}}, testNow)
	assert.False(t, pass, "exact combination inside the window fails")

	pass, _ = PassesFilters(lists, &OutfitCandidate{Colors: []string{"navy", "grey"}}, testNow)
	assert.True(t, pass, "a different combination passes")

	pass, _ = PassesFilters(lists, &OutfitCandidate{Colors: []string{"white", "navy"}}, testNow.Add(48*time.Hour))
	assert.True(t, pass, "expired temporary blocks stop gating")
}

func TestScoreWithSoftPenaltiesCompounds(t *testing.T) {
	lists := EmptyBlocklists()
	lists.SoftColors = []BlocklistItem{{Value: "orange", Count: 1}}
	lists.SoftStyles = []BlocklistItem{{Value: "sporty", Count: 6}}

	candidate := &OutfitCandidate{Colors: []string{"orange", "navy"}, Style: "sporty"}
	assert.InDelta(t, 100*0.5*0.3, ScoreWithSoftPenalties(lists, 100, candidate), 0.001)
}

func TestAddHardRemovesSoftEntry(t *testing.T) {
	store := newFakeStore()
	m := newTestBlocklistManager(store)
	ctx := context.Background()

	require.NoError(t, m.AddOrIncrementSoft(ctx, 1, DimensionColor, "orange", 3))
	require.NoError(t, m.AddHard(ctx, 1, DimensionColor, "orange", "never again"))

	lists := m.Get(ctx, 1)
	assert.True(t, IsHardBlocked(lists, DimensionColor, "orange"))
	assert.Empty(t, lists.SoftColors, "a value lives in at most one tier")
}

func TestAddOrIncrementSoftSkipsHardBlocked(t *testing.T) {
	store := newFakeStore()
	m := newTestBlocklistManager(store)
	ctx := context.Background()

	require.NoError(t, m.AddHard(ctx, 1, DimensionColor, "red", "blocked"))
	require.NoError(t, m.AddOrIncrementSoft(ctx, 1, DimensionColor, "red", 1))

	lists := m.Get(ctx, 1)
	assert.Empty(t, lists.SoftColors)
}

func TestPromoteSoftToHardIdempotent(t *testing.T) {
	store := newFakeStore()
	m := newTestBlocklistManager(store)
	ctx := context.Background()

	require.NoError(t, m.AddOrIncrementSoft(ctx, 1, DimensionColor, "orange", 9))

	lists := m.Get(ctx, 1)
	assert.False(t, IsHardBlocked(lists, DimensionColor, "orange"), "below threshold stays soft")

	// The tenth ignore crosses the promotion threshold.
	require.NoError(t, m.AddOrIncrementSoft(ctx, 1, DimensionColor, "orange", 1))

	lists = m.Get(ctx, 1)
	assert.True(t, IsHardBlocked(lists, DimensionColor, "orange"))
	assert.Empty(t, lists.SoftColors, "promoted entry leaves the soft tier")
	require.Len(t, lists.HardColors, 1)
	assert.Equal(t, "Consistently ignored (10+ times)", lists.HardColors[0].Reason)

	// Running the sweep again must not duplicate the hard entry.
	require.NoError(t, m.PromoteSoftToHard(ctx, 1))
	lists = m.Get(ctx, 1)
	assert.Len(t, lists.HardColors, 1)
}

func TestAnalyzeIgnoredSessionSharedFeatures(t *testing.T) {
	store := newFakeStore()
	m := newTestBlocklistManager(store)
	ctx := context.Background()

	outfits := []OutfitSnapshot{
		{Colors: []string{"orange", "white"}, Style: "sporty"},
		{Colors: []string{"orange", "navy"}, Style: "sporty"},
		{Colors: []string{"orange", "grey"}, Style: "sporty"},
	}
	require.NoError(t, m.AnalyzeIgnoredSession(ctx, 1, outfits))

	lists := m.Get(ctx, 1)
	assert.Equal(t, 0.5, SoftBlockWeight(lists, DimensionColor, "orange"), "color shared by all three is soft-blocked")
	assert.Equal(t, 0.5, SoftBlockWeight(lists, DimensionStyle, "sporty"))
	assert.Equal(t, 1.0, SoftBlockWeight(lists, DimensionColor, "white"), "a color in one outfit of three is under the 70% share")
	assert.Equal(t, 1.0, SoftBlockWeight(lists, DimensionColor, "navy"))
}

func TestAnalyzeIgnoredSessionTooSmall(t *testing.T) {
	store := newFakeStore()
	m := newTestBlocklistManager(store)

	require.NoError(t, m.AnalyzeIgnoredSession(context.Background(), 1, []OutfitSnapshot{{Colors: []string{"red"}}}))
	assert.Empty(t, m.Get(context.Background(), 1).SoftColors, "a single outfit is not a session")
}

func TestTemporaryBlockLifecycle(t *testing.T) {
	store := newFakeStore()
	m := newTestBlocklistManager(store)
	ctx := context.Background()

	require.NoError(t, m.AddTemporary(ctx, 1, []string{"navy", "white"}, []string{"formal"}, 30))
	require.NoError(t, m.AddTemporary(ctx, 1, []string{"navy"}, nil, 30))

	lists := m.Get(ctx, 1)
	require.Len(t, lists.Temporary, 1, "single-color combinations are not tracked")
	assert.True(t, WasRecentlyRecommended(lists, []string{"white", "navy blue"}, testNow))

	// After the TTL the entry is filtered on read.
	m.now = func() time.Time { return testNow.Add(31 * 24 * time.Hour) }
	lists = m.Get(ctx, 1)
	assert.Empty(t, lists.Temporary)

	// The cleanup sweep persists the pruned list.
	require.NoError(t, m.CleanupExpired(ctx, 1))
	stored, _, err := store.ReadBlocklists(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, stored.Temporary)
}

func TestMutatorsPreserveStateOnReadFailure(t *testing.T) {
	store := newFakeStore()
	m := newTestBlocklistManager(store)
	ctx := context.Background()

	require.NoError(t, m.AddHard(ctx, 1, DimensionColor, "red", "never"))
	require.NoError(t, m.AddOrIncrementSoft(ctx, 1, DimensionStyle, "sporty", 6))

	// A transient read failure must fail the mutation loudly instead of
	// writing a defaulted document back over the standing entries.
	store.failReads = true
	assert.Error(t, m.AddHard(ctx, 1, DimensionColor, "green", "never"))
	assert.Error(t, m.RemoveHard(ctx, 1, DimensionColor, "red"))
	assert.Error(t, m.AddOrIncrementSoft(ctx, 1, DimensionColor, "pink", 1))
	assert.Error(t, m.AddTemporary(ctx, 1, []string{"navy", "white"}, nil, 30))
	assert.Error(t, m.PromoteSoftToHard(ctx, 1))
	assert.Error(t, m.CleanupExpired(ctx, 1))

	store.failReads = false
	lists := m.Get(ctx, 1)
	assert.True(t, IsHardBlocked(lists, DimensionColor, "red"))
	assert.Equal(t, 0.3, SoftBlockWeight(lists, DimensionStyle, "sporty"))
}

func TestGetDegradesOnStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failReads = true
	m := newTestBlocklistManager(store)

	lists := m.Get(context.Background(), 1)
	require.NotNil(t, lists)
	assert.Empty(t, lists.HardColors)
	assert.Empty(t, lists.Temporary)
}
