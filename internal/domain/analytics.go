package domain

import (
	"math"
	"sort"
)

// Summary warnings.
const (
	WarningEmptyTree = "empty_tree"
	WarningRootOnly  = "root_only"
)

// LevelStats aggregates the members at one level.
type LevelStats struct {
	Level    int
	Count    int
	Volume   float64
	Earnings float64
}

// TierStats aggregates the members holding one package tier.
type TierStats struct {
	Tier   string
	Count  int
	Volume float64
}

// PerformanceMetrics are the ratios derived after a traversal.
type PerformanceMetrics struct {
	AverageVolume       float64
	ActivityRate        float64
	EarningsEfficiency  float64
	CommunityDepth      int
	CommunityWidth      int
	LeadershipQualified int
	CappedMembers       int
}

// AnalyticsSummary is a network-wide snapshot. Breakdowns are in order of first encounter.
type AnalyticsSummary struct {
	TotalMembers       int
	ActiveMembers      int
	TotalVolume        float64
	TotalEarnings      float64
	LevelBreakdown     []LevelStats
	TierBreakdown      []TierStats
	RewardDistribution RewardBreakdown
	PerformanceMetrics PerformanceMetrics
	Warnings           []string
}

// Level returns the stats for a level.
func (s AnalyticsSummary) Level(level int) (LevelStats, bool) {
	for _, l := range s.LevelBreakdown {
		if l.Level == level {
			return l, true
		}
	}
	return LevelStats{}, false
}

// Tier returns the stats for a tier.
func (s AnalyticsSummary) Tier(name string) (TierStats, bool) {
	for _, t := range s.TierBreakdown {
		if t.Tier == name {
			return t, true
		}
	}
	return TierStats{}, false
}

// SortedLevels returns a copy of the level breakdown in ascending level order.
func (s AnalyticsSummary) SortedLevels() []LevelStats {
	out := append([]LevelStats(nil), s.LevelBreakdown...)
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// SortedTiers returns a copy of the tier breakdown ordered by rank in table.
// Tiers missing from the table sort last, by name.
func (s AnalyticsSummary) SortedTiers(table TierTable) []TierStats {
	out := append([]TierStats(nil), s.TierBreakdown...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := table.Rank(out[i].Tier), table.Rank(out[j].Tier)
		if ri == 0 {
			ri = math.MaxInt
		}
		if rj == 0 {
			rj = math.MaxInt
		}
		if ri != rj {
			return ri < rj
		}
		return out[i].Tier < out[j].Tier
	})
	return out
}

// HasWarning reports whether the summary carries the given warning.
func (s AnalyticsSummary) HasWarning(w string) bool {
	for _, existing := range s.Warnings {
		if existing == w {
			return true
		}
	}
	return false
}
