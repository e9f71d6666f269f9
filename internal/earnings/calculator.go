// Package earnings computes per-member reward breakdowns under a RewardPolicy.
package earnings

import (
	"fmt"
	"math"

	"github.com/vanshika/comptree/backend/internal/domain"
)

// Breakdown is the result of evaluating one member against the reward policy.
type Breakdown struct {
	Rewards             domain.RewardBreakdown
	PreClampTotal       float64
	EarningsCap         float64
	Earnings            float64
	// IsCapped reports that credited earnings have reached the cap.
	IsCapped bool
	// DistributionClamped reports that the distributed total was scaled down to the cap.
	DistributionClamped bool
	LeadershipQualified bool
}

// Calculator evaluates members. It is safe for concurrent use.
type Calculator struct {
	policy domain.RewardPolicy
}

// NewCalculator validates policy and returns a calculator bound to it.
func NewCalculator(policy domain.RewardPolicy) (*Calculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("earnings policy: %w", err)
	}
	return &Calculator{policy: policy}, nil
}

// Policy returns the policy the calculator was built with.
func (c *Calculator) Policy() domain.RewardPolicy {
	return c.policy
}

// LeadershipQualified reports whether m passes both leadership thresholds.
func (c *Calculator) LeadershipQualified(m *domain.Member) bool {
	return m.DirectIntroductions >= c.policy.LeadershipMinDirects &&
		m.CommunitySize >= c.policy.LeadershipMinCommunity
}

// ComputeBreakdown splits m's volume across the five reward categories and clamps the
// total to the tier cap. An unearned leadership share is added to the growth pool.
func (c *Calculator) ComputeBreakdown(m *domain.Member) (Breakdown, error) {
	tier, ok := c.policy.Tiers.Lookup(m.Tier)
	if !ok {
		return Breakdown{}, &domain.InvalidTierError{MemberID: m.ID, Tier: m.Tier}
	}
	v := m.Volume
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Breakdown{}, &domain.InvalidVolumeError{MemberID: m.ID, Volume: v}
	}

	p := c.policy
	qualified := c.LeadershipQualified(m)
	leadershipRate := 0.0
	if qualified {
		leadershipRate = p.LeadershipRate
	}

	// Validate guarantees the five rates sum to one, so the full distribution is the volume.
	preClamp := v
	capAmount := p.CapFor(tier)
	target := math.Min(preClamp, capAmount)
	scale := 1.0
	if preClamp > 0 && target < preClamp {
		scale = target / preClamp
	}

	r := domain.RewardBreakdown{
		DirectBonus:       v * p.DirectBonusRate * scale,
		LevelRewards:      v * p.LevelRate * scale,
		GlobalRewards:     v * p.GlobalRate * scale,
		LeadershipRewards: v * leadershipRate * scale,
	}
	// The growth pool takes the floating residual so the categories sum to target.
	r.GrowthPool = math.Max(0, target-(r.DirectBonus+r.LevelRewards+r.GlobalRewards+r.LeadershipRewards))
	earned := math.Min(v*p.CreditedRate, capAmount)
	return Breakdown{
		Rewards:             r,
		PreClampTotal:       preClamp,
		EarningsCap:         capAmount,
		Earnings:            earned,
		IsCapped:            earned >= capAmount,
		DistributionClamped: preClamp >= capAmount,
		LeadershipQualified: qualified,
	}, nil
}

// Annotate returns a copy of t with every member's reward fields populated.
// The input tree is left untouched.
func (c *Calculator) Annotate(t *domain.Tree) (*domain.Tree, error) {
	return t.Clone(func(m *domain.Member) error {
		b, err := c.ComputeBreakdown(m)
		if err != nil {
			return err
		}
		m.Rewards = b.Rewards
		m.EarningsCap = b.EarningsCap
		m.Earnings = b.Earnings
		m.IsCapped = b.IsCapped
		m.LeadershipQualified = b.LeadershipQualified
		return nil
	})
}
