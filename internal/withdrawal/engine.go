// Package withdrawal computes withdraw/reinvest splits and keeps a session withdrawal history.
package withdrawal

import (
	"fmt"
	"math"
	"strconv"

	"github.com/vanshika/comptree/backend/internal/domain"
)

// AutoCompoundTier names the split applied when auto-compound overrides the table.
const AutoCompoundTier = "Auto-Compound"

// Engine applies a WithdrawalPolicy. It holds no mutable state.
type Engine struct {
	policy domain.WithdrawalPolicy
}

// NewEngine validates policy and returns an engine bound to it.
func NewEngine(policy domain.WithdrawalPolicy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("withdrawal policy: %w", err)
	}
	return &Engine{policy: policy}, nil
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() domain.WithdrawalPolicy {
	return e.policy
}

// Compute splits req.Amount. The fee applies to the withdrawn portion only and the
// compound bonus is paid on top of the amount, never carved out of it.
func (e *Engine) Compute(req domain.WithdrawalRequest) (domain.WithdrawalBreakdown, error) {
	amount := req.Amount
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return domain.WithdrawalBreakdown{}, &domain.InvalidAmountError{Amount: amount}
	}

	rule, _, _ := e.policy.Splits.Lookup(max(req.DirectIntroductions, 0))
	tierName := rule.Name
	withdrawPct, reinvestPct := rule.WithdrawPercent, rule.ReinvestPercent
	if req.AutoCompound {
		tierName = AutoCompoundTier
		withdrawPct, reinvestPct = 0, 100
	}

	withdrawAmount := amount * withdrawPct / 100
	adminFee := withdrawAmount * e.policy.FeeRate
	reinvestAmount := amount * reinvestPct / 100
	bonus := 0.0
	if req.AutoCompound {
		bonus = reinvestAmount * e.policy.CompoundBonusRate
	}

	return domain.WithdrawalBreakdown{
		TotalAmount:      amount,
		WithdrawAmount:   withdrawAmount,
		AdminFee:         adminFee,
		UserReceives:     withdrawAmount - adminFee,
		ReinvestAmount:   reinvestAmount,
		CompoundBonus:    bonus,
		TotalReinvest:    reinvestAmount + bonus,
		EffectiveFeeRate: adminFee / amount * 100,
		SplitLabel:       splitLabel(withdrawPct, reinvestPct),
		TierName:         tierName,
		WithdrawPercent:  withdrawPct,
		ReinvestPercent:  reinvestPct,
		AutoCompound:     req.AutoCompound,
	}, nil
}

func splitLabel(withdraw, reinvest float64) string {
	return strconv.FormatFloat(withdraw, 'f', -1, 64) + "/" + strconv.FormatFloat(reinvest, 'f', -1, 64)
}

// Progress describes how far a member is from the next split tier.
type Progress struct {
	Current         domain.SplitRule
	Next            *domain.SplitRule
	ReferralsNeeded int
	Percent         float64
}

// ProgressFor reports the member's current split tier and progress toward the next one.
// At the top tier Percent is 100 and Next is nil.
func ProgressFor(table domain.SplitTable, directs int) (Progress, error) {
	if err := table.Validate(); err != nil {
		return Progress{}, err
	}
	directs = max(directs, 0)
	current, idx, _ := table.Lookup(directs)
	p := Progress{Current: current, Percent: 100}
	if idx+1 < len(table) {
		next := table[idx+1]
		p.Next = &next
		p.ReferralsNeeded = next.MinReferrals - directs
		p.Percent = math.Min(float64(directs)/float64(next.MinReferrals)*100, 100)
	}
	return p, nil
}
