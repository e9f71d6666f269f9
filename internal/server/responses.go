package server

import (
	"github.com/vanshika/comptree/backend/internal/domain"
	"github.com/vanshika/comptree/backend/internal/withdrawal"
)

// --- Request & Response DTOs ---

type withdrawalPreviewRequest struct {
	Amount              float64 `json:"amount" validate:"gt=0"`
	DirectIntroductions int     `json:"directIntroductions" validate:"gte=0"`
	AutoCompound        bool    `json:"autoCompound"`
}

type withdrawalRequest struct {
	MemberID     string  `json:"memberId" validate:"required"`
	Amount       float64 `json:"amount" validate:"gt=0"`
	AutoCompound bool    `json:"autoCompound"`
}

type rewardsResponse struct {
	DirectBonus       float64 `json:"directBonus"`
	LevelRewards      float64 `json:"levelRewards"`
	GlobalRewards     float64 `json:"globalRewards"`
	LeadershipRewards float64 `json:"leadershipRewards"`
	GrowthPool        float64 `json:"growthPool"`
}

type memberResponse struct {
	ID                  string          `json:"id"`
	ParentID            string          `json:"parentId,omitempty"`
	Name                string          `json:"name"`
	Level               int             `json:"level"`
	Tier                string          `json:"tier"`
	IsActive            bool            `json:"isActive"`
	JoinOrder           int64           `json:"joinOrder"`
	RegisteredAt        string          `json:"registeredAt,omitempty"`
	DirectIntroductions int             `json:"directIntroductions"`
	CommunitySize       int             `json:"communitySize"`
	Volume              float64         `json:"volume"`
	Earnings            float64         `json:"earnings"`
	EarningsCap         float64         `json:"earningsCap"`
	EarningsPercent     float64         `json:"earningsPercent"`
	IsCapped            bool            `json:"isCapped"`
	LeadershipQualified bool            `json:"leadershipQualified"`
	Rewards             rewardsResponse `json:"rewards"`
	ChildIDs            []string        `json:"childIds"`
}

type levelResponse struct {
	Level    int     `json:"level"`
	Count    int     `json:"count"`
	Volume   float64 `json:"volume"`
	Earnings float64 `json:"earnings"`
}

type tierResponse struct {
	Tier   string  `json:"tier"`
	Count  int     `json:"count"`
	Volume float64 `json:"volume"`
}

type metricsResponse struct {
	AverageVolume       float64 `json:"averageVolume"`
	ActivityRate        float64 `json:"activityRate"`
	EarningsEfficiency  float64 `json:"earningsEfficiency"`
	CommunityDepth      int     `json:"communityDepth"`
	CommunityWidth      int     `json:"communityWidth"`
	LeadershipQualified int     `json:"leadershipQualified"`
	CappedMembers       int     `json:"cappedMembers"`
}

type summaryResponse struct {
	TotalMembers       int             `json:"totalMembers"`
	ActiveMembers      int             `json:"activeMembers"`
	TotalVolume        float64         `json:"totalVolume"`
	TotalEarnings      float64         `json:"totalEarnings"`
	RewardDistribution rewardsResponse `json:"rewardDistribution"`
	Levels             []levelResponse `json:"levelBreakdown"`
	Tiers              []tierResponse  `json:"tierBreakdown"`
	Metrics            metricsResponse `json:"performanceMetrics"`
	Warnings           []string        `json:"warnings"`
}

type treeResponse struct {
	RootID     string           `json:"rootId"`
	Size       int              `json:"size"`
	AnchorOnly bool             `json:"anchorOnly"`
	Members    []memberResponse `json:"members"`
	Summary    summaryResponse  `json:"summary"`
}

type analyticsResponse struct {
	RootID     string          `json:"rootId"`
	Generation uint64          `json:"generation"`
	BuiltAt    string          `json:"builtAt"`
	Summary    summaryResponse `json:"summary"`
}

type searchResponse struct {
	Query string           `json:"query"`
	Items []memberResponse `json:"items"`
}

type progressResponse struct {
	CurrentTier     string  `json:"currentTier"`
	WithdrawPercent float64 `json:"withdrawPercent"`
	ReinvestPercent float64 `json:"reinvestPercent"`
	NextTier        string  `json:"nextTier,omitempty"`
	NextThreshold   int     `json:"nextThreshold,omitempty"`
	ReferralsNeeded int     `json:"referralsNeeded"`
	Percent         float64 `json:"percent"`
}

type memberDetailResponse struct {
	Member   memberResponse   `json:"member"`
	Path     []string         `json:"path"`
	Progress progressResponse `json:"progress"`
}

type withdrawalResponse struct {
	TotalAmount      float64 `json:"totalAmount"`
	WithdrawAmount   float64 `json:"withdrawAmount"`
	AdminFee         float64 `json:"adminFee"`
	UserReceives     float64 `json:"userReceives"`
	ReinvestAmount   float64 `json:"reinvestAmount"`
	CompoundBonus    float64 `json:"compoundBonus"`
	TotalReinvest    float64 `json:"totalReinvest"`
	EffectiveFeeRate float64 `json:"effectiveFeeRate"`
	SplitLabel       string  `json:"splitLabel"`
	TierName         string  `json:"tierName"`
	AutoCompound     bool    `json:"autoCompound"`
}

type ledgerEntryResponse struct {
	ID         string             `json:"id"`
	MemberID   string             `json:"memberId"`
	RecordedAt string             `json:"recordedAt"`
	Breakdown  withdrawalResponse `json:"breakdown"`
}

type historyResponse struct {
	MemberID           string                `json:"memberId"`
	TotalFeesCollected float64               `json:"totalFeesCollected"`
	Items              []ledgerEntryResponse `json:"items"`
}

type tierPolicyResponse struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	EarningsCap float64 `json:"earningsCap"`
}

type splitResponse struct {
	Name            string  `json:"name"`
	MinReferrals    int     `json:"minReferrals"`
	WithdrawPercent float64 `json:"withdrawPercent"`
	ReinvestPercent float64 `json:"reinvestPercent"`
}

type policyResponse struct {
	Tiers                  []tierPolicyResponse `json:"tiers"`
	CapMultiplier          float64              `json:"capMultiplier"`
	CreditedRate           float64              `json:"creditedRate"`
	Rates                  rewardsResponse      `json:"rates"`
	LeadershipMinDirects   int                  `json:"leadershipMinDirects"`
	LeadershipMinCommunity int                  `json:"leadershipMinCommunity"`
	MaxDepth               int                  `json:"maxDepth"`
	Splits                 []splitResponse      `json:"splits"`
	FeeRate                float64              `json:"feeRate"`
	CompoundBonusRate      float64              `json:"compoundBonusRate"`
}

func toRewardsResponse(r domain.RewardBreakdown) rewardsResponse {
	return rewardsResponse{
		DirectBonus:       r.DirectBonus,
		LevelRewards:      r.LevelRewards,
		GlobalRewards:     r.GlobalRewards,
		LeadershipRewards: r.LeadershipRewards,
		GrowthPool:        r.GrowthPool,
	}
}

func toMemberResponse(m *domain.Member, parentID string) memberResponse {
	resp := memberResponse{
		ID:                  m.ID,
		ParentID:            parentID,
		Name:                m.Name,
		Level:               m.Level,
		Tier:                m.Tier,
		IsActive:            m.IsActive,
		JoinOrder:           m.JoinOrder,
		RegisteredAt:        formatTime(m.RegistrationTime),
		DirectIntroductions: m.DirectIntroductions,
		CommunitySize:       m.CommunitySize,
		Volume:              m.Volume,
		Earnings:            m.Earnings,
		EarningsCap:         m.EarningsCap,
		EarningsPercent:     m.EarningsPercent(),
		IsCapped:            m.IsCapped,
		LeadershipQualified: m.LeadershipQualified,
		Rewards:             toRewardsResponse(m.Rewards),
		ChildIDs:            make([]string, 0, len(m.Children)),
	}
	for _, child := range m.Children {
		resp.ChildIDs = append(resp.ChildIDs, child.ID)
	}
	return resp
}

// flattenTree lists members in pre-order with their parent IDs so that arbitrarily deep
// networks render without nesting.
func flattenTree(t *domain.Tree) []memberResponse {
	if t == nil || t.Root == nil {
		return []memberResponse{}
	}
	type frame struct {
		member   *domain.Member
		parentID string
	}
	out := make([]memberResponse, 0, t.Size)
	stack := []frame{{member: t.Root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, toMemberResponse(f.member, f.parentID))
		for i := len(f.member.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{member: f.member.Children[i], parentID: f.member.ID})
		}
	}
	return out
}

func toSummaryResponse(s domain.AnalyticsSummary, tiers domain.TierTable) summaryResponse {
	resp := summaryResponse{
		TotalMembers:       s.TotalMembers,
		ActiveMembers:      s.ActiveMembers,
		TotalVolume:        s.TotalVolume,
		TotalEarnings:      s.TotalEarnings,
		RewardDistribution: toRewardsResponse(s.RewardDistribution),
		Levels:             []levelResponse{},
		Tiers:              []tierResponse{},
		Metrics: metricsResponse{
			AverageVolume:       s.PerformanceMetrics.AverageVolume,
			ActivityRate:        s.PerformanceMetrics.ActivityRate,
			EarningsEfficiency:  s.PerformanceMetrics.EarningsEfficiency,
			CommunityDepth:      s.PerformanceMetrics.CommunityDepth,
			CommunityWidth:      s.PerformanceMetrics.CommunityWidth,
			LeadershipQualified: s.PerformanceMetrics.LeadershipQualified,
			CappedMembers:       s.PerformanceMetrics.CappedMembers,
		},
		Warnings: append([]string{}, s.Warnings...),
	}
	for _, l := range s.SortedLevels() {
		resp.Levels = append(resp.Levels, levelResponse{Level: l.Level, Count: l.Count, Volume: l.Volume, Earnings: l.Earnings})
	}
	for _, t := range s.SortedTiers(tiers) {
		resp.Tiers = append(resp.Tiers, tierResponse{Tier: t.Tier, Count: t.Count, Volume: t.Volume})
	}
	return resp
}

func toWithdrawalResponse(b domain.WithdrawalBreakdown) withdrawalResponse {
	return withdrawalResponse{
		TotalAmount:      b.TotalAmount,
		WithdrawAmount:   b.WithdrawAmount,
		AdminFee:         b.AdminFee,
		UserReceives:     b.UserReceives,
		ReinvestAmount:   b.ReinvestAmount,
		CompoundBonus:    b.CompoundBonus,
		TotalReinvest:    b.TotalReinvest,
		EffectiveFeeRate: b.EffectiveFeeRate,
		SplitLabel:       b.SplitLabel,
		TierName:         b.TierName,
		AutoCompound:     b.AutoCompound,
	}
}

func toLedgerEntryResponse(e withdrawal.Entry) ledgerEntryResponse {
	return ledgerEntryResponse{
		ID:         e.ID,
		MemberID:   e.MemberID,
		RecordedAt: formatTime(e.RecordedAt),
		Breakdown:  toWithdrawalResponse(e.Breakdown),
	}
}
