package domain

import (
	"fmt"
	"math"
)

// PackageTier is a purchasable membership level.
type PackageTier struct {
	Name  string
	Price float64
	Rank  int
}

// TierTable is the ordered set of package tiers, lowest rank first.
type TierTable []PackageTier

// DefaultTierTable returns the Bronze/Silver/Gold/Diamond ladder.
func DefaultTierTable() TierTable {
	return TierTable{
		{Name: "Bronze", Price: 30, Rank: 1},
		{Name: "Silver", Price: 50, Rank: 2},
		{Name: "Gold", Price: 100, Rank: 3},
		{Name: "Diamond", Price: 200, Rank: 4},
	}
}

// Lookup finds a tier by exact name.
func (t TierTable) Lookup(name string) (PackageTier, bool) {
	for _, tier := range t {
		if tier.Name == name {
			return tier, true
		}
	}
	return PackageTier{}, false
}

// Rank returns the rank of the named tier, or 0 when unknown.
func (t TierTable) Rank(name string) int {
	if tier, ok := t.Lookup(name); ok {
		return tier.Rank
	}
	return 0
}

// RewardPolicy configures the earnings calculator.
type RewardPolicy struct {
	Tiers         TierTable
	CapMultiplier float64

	DirectBonusRate float64
	LevelRate       float64
	GlobalRate      float64
	LeadershipRate  float64
	GrowthRate      float64

	// CreditedRate is the share of volume already credited to the member, bounded by the cap.
	CreditedRate float64

	LeadershipMinDirects   int
	LeadershipMinCommunity int

	// MaxDepth is advisory: it bounds data fetches and default filters, never tree structure.
	MaxDepth int
}

// DefaultRewardPolicy returns the 40/10/10/10/30 plan with a 4x cap.
func DefaultRewardPolicy() RewardPolicy {
	return RewardPolicy{
		Tiers:                  DefaultTierTable(),
		CapMultiplier:          4,
		DirectBonusRate:        0.40,
		LevelRate:              0.10,
		GlobalRate:             0.10,
		LeadershipRate:         0.10,
		GrowthRate:             0.30,
		CreditedRate:           0.40,
		LeadershipMinDirects:   5,
		LeadershipMinCommunity: 20,
		MaxDepth:               6,
	}
}

// CapFor returns the earnings cap of a tier.
func (p RewardPolicy) CapFor(tier PackageTier) float64 {
	return tier.Price * p.CapMultiplier
}

// Validate checks the policy for internal consistency.
func (p RewardPolicy) Validate() error {
	if len(p.Tiers) == 0 {
		return fmt.Errorf("%w: tier table is empty", ErrInvalidPolicy)
	}
	seen := make(map[string]struct{}, len(p.Tiers))
	for _, tier := range p.Tiers {
		if tier.Name == "" {
			return fmt.Errorf("%w: tier name is required", ErrInvalidPolicy)
		}
		if _, dup := seen[tier.Name]; dup {
			return fmt.Errorf("%w: tier %q declared twice", ErrInvalidPolicy, tier.Name)
		}
		seen[tier.Name] = struct{}{}
		if tier.Price <= 0 {
			return fmt.Errorf("%w: tier %q price must be positive", ErrInvalidPolicy, tier.Name)
		}
	}
	if p.CapMultiplier <= 0 {
		return fmt.Errorf("%w: cap multiplier must be positive", ErrInvalidPolicy)
	}
	rates := []float64{p.DirectBonusRate, p.LevelRate, p.GlobalRate, p.LeadershipRate, p.GrowthRate, p.CreditedRate}
	for _, r := range rates {
		if r < 0 || math.IsNaN(r) {
			return fmt.Errorf("%w: reward rates must be non-negative", ErrInvalidPolicy)
		}
	}
	sum := p.DirectBonusRate + p.LevelRate + p.GlobalRate + p.LeadershipRate + p.GrowthRate
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("%w: reward rates sum to %v, want 1", ErrInvalidPolicy, sum)
	}
	if p.LeadershipMinDirects < 0 || p.LeadershipMinCommunity < 0 {
		return fmt.Errorf("%w: leadership thresholds must be non-negative", ErrInvalidPolicy)
	}
	return nil
}

// SplitRule maps a minimum referral count to a withdraw/reinvest split.
type SplitRule struct {
	Name            string
	MinReferrals    int
	WithdrawPercent float64
	ReinvestPercent float64
}

// SplitTable is ordered by ascending MinReferrals.
type SplitTable []SplitRule

// IntroductionSplitTable is the 70/30, 75/25, 80/20 ladder keyed at 0, 5 and 20 referrals.
func IntroductionSplitTable() SplitTable {
	return SplitTable{
		{Name: "Starter", MinReferrals: 0, WithdrawPercent: 70, ReinvestPercent: 30},
		{Name: "Active", MinReferrals: 5, WithdrawPercent: 75, ReinvestPercent: 25},
		{Name: "Leader", MinReferrals: 20, WithdrawPercent: 80, ReinvestPercent: 20},
	}
}

// CollectionSplitTable is the 70/30, 80/20, 90/10 ladder keyed at 0, 1 and 3 referrals.
func CollectionSplitTable() SplitTable {
	return SplitTable{
		{Name: "Starter", MinReferrals: 0, WithdrawPercent: 70, ReinvestPercent: 30},
		{Name: "Builder", MinReferrals: 1, WithdrawPercent: 80, ReinvestPercent: 20},
		{Name: "Leader", MinReferrals: 3, WithdrawPercent: 90, ReinvestPercent: 10},
	}
}

// Lookup returns the rule with the highest threshold not above referrals, and its index.
func (t SplitTable) Lookup(referrals int) (SplitRule, int, bool) {
	idx := -1
	for i, rule := range t {
		if referrals >= rule.MinReferrals {
			idx = i
		}
	}
	if idx < 0 {
		return SplitRule{}, -1, false
	}
	return t[idx], idx, true
}

// Validate checks ordering and percentages.
func (t SplitTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: split table is empty", ErrInvalidPolicy)
	}
	if t[0].MinReferrals != 0 {
		return fmt.Errorf("%w: first split rule must start at 0 referrals", ErrInvalidPolicy)
	}
	for i, rule := range t {
		if i > 0 && rule.MinReferrals <= t[i-1].MinReferrals {
			return fmt.Errorf("%w: split thresholds must be strictly ascending", ErrInvalidPolicy)
		}
		if rule.WithdrawPercent < 0 || rule.ReinvestPercent < 0 {
			return fmt.Errorf("%w: split percentages must be non-negative", ErrInvalidPolicy)
		}
		if math.Abs(rule.WithdrawPercent+rule.ReinvestPercent-100) > 1e-9 {
			return fmt.Errorf("%w: split %q does not sum to 100", ErrInvalidPolicy, rule.Name)
		}
	}
	return nil
}

// WithdrawalPolicy configures the withdrawal split engine.
type WithdrawalPolicy struct {
	Splits            SplitTable
	FeeRate           float64
	CompoundBonusRate float64
}

// DefaultWithdrawalPolicy uses the introduction ladder with a 5% fee and a 5% compound bonus.
func DefaultWithdrawalPolicy() WithdrawalPolicy {
	return WithdrawalPolicy{
		Splits:            IntroductionSplitTable(),
		FeeRate:           0.05,
		CompoundBonusRate: 0.05,
	}
}

// Validate checks the policy for internal consistency.
func (p WithdrawalPolicy) Validate() error {
	if err := p.Splits.Validate(); err != nil {
		return err
	}
	if p.FeeRate < 0 || p.FeeRate > 1 {
		return fmt.Errorf("%w: fee rate must be within [0, 1]", ErrInvalidPolicy)
	}
	if p.CompoundBonusRate < 0 {
		return fmt.Errorf("%w: compound bonus rate must be non-negative", ErrInvalidPolicy)
	}
	return nil
}
