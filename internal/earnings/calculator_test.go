package earnings

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/comptree/backend/internal/domain"
	"github.com/vanshika/comptree/backend/internal/tree"
)

const tolerance = 1e-9

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := NewCalculator(domain.DefaultRewardPolicy())
	require.NoError(t, err)
	return c
}

func TestComputeBreakdownConservesVolumeWithoutLeadership(t *testing.T) {
	c := newCalculator(t)
	volumes := []float64{0, 1, 33.33, 250, 399.99, 400, 401, 10000}

	for _, v := range volumes {
		m := &domain.Member{ID: "m", Tier: "Gold", Volume: v, DirectIntroductions: 2, CommunitySize: 4}
		b, err := c.ComputeBreakdown(m)
		require.NoError(t, err)

		want := math.Min(v, 400)
		assert.InDelta(t, want, b.Rewards.Total(), tolerance, "volume %v", v)
		assert.Zero(t, b.Rewards.LeadershipRewards)
		assert.False(t, b.LeadershipQualified)
		assert.GreaterOrEqual(t, b.Rewards.GrowthPool, 0.0)
	}
}

func TestComputeBreakdownLeadershipGate(t *testing.T) {
	c := newCalculator(t)

	qualified := &domain.Member{ID: "q", Tier: "Diamond", Volume: 500, DirectIntroductions: 5, CommunitySize: 20}
	b, err := c.ComputeBreakdown(qualified)
	require.NoError(t, err)
	assert.True(t, b.LeadershipQualified)
	assert.InDelta(t, 50, b.Rewards.LeadershipRewards, tolerance)
	assert.InDelta(t, 150, b.Rewards.GrowthPool, tolerance)

	short := &domain.Member{ID: "s", Tier: "Diamond", Volume: 500, DirectIntroductions: 4, CommunitySize: 20}
	b, err = c.ComputeBreakdown(short)
	require.NoError(t, err)
	assert.False(t, b.LeadershipQualified)
	assert.Zero(t, b.Rewards.LeadershipRewards)
	assert.InDelta(t, 200, b.Rewards.GrowthPool, tolerance)

	small := &domain.Member{ID: "c", Tier: "Diamond", Volume: 500, DirectIntroductions: 6, CommunitySize: 19}
	b, err = c.ComputeBreakdown(small)
	require.NoError(t, err)
	assert.Zero(t, b.Rewards.LeadershipRewards)
}

func TestComputeBreakdownCapClamp(t *testing.T) {
	c := newCalculator(t)
	m := &domain.Member{ID: "d", Tier: "Diamond", Volume: 3000, DirectIntroductions: 5, CommunitySize: 25}

	b, err := c.ComputeBreakdown(m)
	require.NoError(t, err)

	assert.Equal(t, 800.0, b.EarningsCap)
	assert.Equal(t, 800.0, b.Earnings)
	assert.True(t, b.IsCapped)
	assert.InDelta(t, 3000, b.PreClampTotal, tolerance)
	assert.InDelta(t, 800, b.Rewards.Total(), tolerance)

	// Proportional clamp keeps the 40/10/10/10/30 shape.
	assert.InDelta(t, 320, b.Rewards.DirectBonus, tolerance)
	assert.InDelta(t, 80, b.Rewards.LevelRewards, tolerance)
	assert.InDelta(t, 80, b.Rewards.GlobalRewards, tolerance)
	assert.InDelta(t, 80, b.Rewards.LeadershipRewards, tolerance)
	assert.InDelta(t, 240, b.Rewards.GrowthPool, tolerance)
}

func TestComputeBreakdownExactlyAtCapClampsDistribution(t *testing.T) {
	c := newCalculator(t)
	b, err := c.ComputeBreakdown(&domain.Member{ID: "b", Tier: "Bronze", Volume: 120})
	require.NoError(t, err)
	assert.True(t, b.DistributionClamped)
	assert.False(t, b.IsCapped)
	assert.InDelta(t, 120, b.Rewards.Total(), tolerance)
	assert.InDelta(t, 48, b.Earnings, tolerance)
}

func TestComputeBreakdownCappedFollowsCreditedEarnings(t *testing.T) {
	c := newCalculator(t)
	cases := []struct {
		volume  float64
		clamped bool
		capped  bool
	}{
		{volume: 399, clamped: false, capped: false},
		{volume: 500, clamped: true, capped: false},
		{volume: 999, clamped: true, capped: false},
		{volume: 1000, clamped: true, capped: true},
		{volume: 5000, clamped: true, capped: true},
	}
	for _, tc := range cases {
		b, err := c.ComputeBreakdown(&domain.Member{ID: "g", Tier: "Gold", Volume: tc.volume})
		require.NoError(t, err)
		assert.Equal(t, tc.clamped, b.DistributionClamped, "volume %v", tc.volume)
		assert.Equal(t, tc.capped, b.IsCapped, "volume %v", tc.volume)
		assert.Equal(t, b.Earnings >= b.EarningsCap, b.IsCapped, "volume %v", tc.volume)
		assert.LessOrEqual(t, b.Earnings, b.EarningsCap)
	}

	annotated, err := c.Annotate(&domain.Tree{Root: &domain.Member{ID: "g", Tier: "Gold", Volume: 500}, Size: 1})
	require.NoError(t, err)
	assert.False(t, annotated.Root.IsCapped)
	assert.InDelta(t, 200, annotated.Root.Earnings, tolerance)
}

func TestComputeBreakdownRejectsBadInput(t *testing.T) {
	c := newCalculator(t)

	_, err := c.ComputeBreakdown(&domain.Member{ID: "x", Tier: "Platinum", Volume: 10})
	var tierErr *domain.InvalidTierError
	require.ErrorAs(t, err, &tierErr)
	assert.Equal(t, "Platinum", tierErr.Tier)

	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err = c.ComputeBreakdown(&domain.Member{ID: "x", Tier: "Gold", Volume: v})
		assert.True(t, errors.Is(err, domain.ErrInvalidVolume), "volume %v", v)
	}
}

func TestNewCalculatorRejectsInvalidPolicy(t *testing.T) {
	p := domain.DefaultRewardPolicy()
	p.GrowthRate = 0.5
	_, err := NewCalculator(p)
	assert.True(t, errors.Is(err, domain.ErrInvalidPolicy))

	p = domain.DefaultRewardPolicy()
	p.Tiers = nil
	_, err = NewCalculator(p)
	assert.True(t, errors.Is(err, domain.ErrInvalidPolicy))
}

func TestAnnotateSampleNetwork(t *testing.T) {
	attrs := map[string]domain.MemberAttributes{}
	for i, id := range []string{"A", "B", "C", "D"} {
		attrs[id] = domain.MemberAttributes{Tier: "Gold", Volume: 250, IsActive: true, JoinOrder: int64(i)}
	}
	built, err := tree.Build([]domain.Edge{
		{MemberID: "A"},
		{MemberID: "B", SponsorID: "A"},
		{MemberID: "C", SponsorID: "A"},
		{MemberID: "D", SponsorID: "B"},
	}, attrs)
	require.NoError(t, err)

	c := newCalculator(t)
	annotated, err := c.Annotate(built)
	require.NoError(t, err)

	a := annotated.Root
	assert.Zero(t, a.Rewards.LeadershipRewards)
	assert.InDelta(t, 100, a.Rewards.DirectBonus, tolerance)
	assert.InDelta(t, 100, a.Earnings, tolerance)
	assert.InDelta(t, 250, a.Rewards.Total(), tolerance)
	assert.Equal(t, 400.0, a.EarningsCap)
	assert.False(t, a.IsCapped)
	assert.InDelta(t, 25, a.EarningsPercent(), tolerance)

	// Source tree keeps its zero reward fields.
	assert.Zero(t, built.Root.Rewards.Total())
	assert.Zero(t, built.Root.EarningsCap)
	assert.Equal(t, built.Size, annotated.Size)
	assert.Equal(t, 4, annotated.Root.CommunitySize)
}

func TestAnnotateFailsOnUnknownTier(t *testing.T) {
	built, err := tree.Build([]domain.Edge{{MemberID: "A"}, {MemberID: "B", SponsorID: "A"}}, map[string]domain.MemberAttributes{
		"A": {Tier: "Gold"},
		"B": {Tier: "gold"},
	})
	require.NoError(t, err)

	_, err = newCalculator(t).Annotate(built)
	assert.True(t, errors.Is(err, domain.ErrInvalidTier))
}
