// Package analytics aggregates network-wide statistics from an annotated tree.
package analytics

import "github.com/vanshika/comptree/backend/internal/domain"

// Aggregate walks t once in pre-order and returns a fresh summary.
// A nil or empty tree yields a zeroed summary carrying WarningEmptyTree.
func Aggregate(t *domain.Tree) domain.AnalyticsSummary {
	var s domain.AnalyticsSummary
	if t == nil || t.Root == nil {
		s.Warnings = []string{domain.WarningEmptyTree}
		return s
	}

	levelIdx := make(map[int]int)
	tierIdx := make(map[string]int)
	stack := []*domain.Member{t.Root}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		s.TotalMembers++
		if m.IsActive {
			s.ActiveMembers++
		}
		s.TotalVolume += m.Volume
		s.TotalEarnings += m.Earnings
		s.RewardDistribution = s.RewardDistribution.Add(m.Rewards)

		i, ok := levelIdx[m.Level]
		if !ok {
			i = len(s.LevelBreakdown)
			levelIdx[m.Level] = i
			s.LevelBreakdown = append(s.LevelBreakdown, domain.LevelStats{Level: m.Level})
		}
		s.LevelBreakdown[i].Count++
		s.LevelBreakdown[i].Volume += m.Volume
		s.LevelBreakdown[i].Earnings += m.Earnings

		j, ok := tierIdx[m.Tier]
		if !ok {
			j = len(s.TierBreakdown)
			tierIdx[m.Tier] = j
			s.TierBreakdown = append(s.TierBreakdown, domain.TierStats{Tier: m.Tier})
		}
		s.TierBreakdown[j].Count++
		s.TierBreakdown[j].Volume += m.Volume

		if m.Level > s.PerformanceMetrics.CommunityDepth {
			s.PerformanceMetrics.CommunityDepth = m.Level
		}
		if m.LeadershipQualified {
			s.PerformanceMetrics.LeadershipQualified++
		}
		if m.IsCapped {
			s.PerformanceMetrics.CappedMembers++
		}

		for k := len(m.Children) - 1; k >= 0; k-- {
			stack = append(stack, m.Children[k])
		}
	}

	pm := &s.PerformanceMetrics
	pm.AverageVolume = ratio(s.TotalVolume, float64(s.TotalMembers))
	pm.ActivityRate = ratio(float64(s.ActiveMembers), float64(s.TotalMembers)) * 100
	pm.EarningsEfficiency = ratio(s.TotalEarnings, s.TotalVolume) * 100
	if l2, ok := levelIdx[2]; ok {
		pm.CommunityWidth = s.LevelBreakdown[l2].Count
	}

	if s.TotalMembers == 1 {
		s.Warnings = append(s.Warnings, domain.WarningRootOnly)
	}
	return s
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
