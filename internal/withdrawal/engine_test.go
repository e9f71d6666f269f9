package withdrawal

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/comptree/backend/internal/domain"
)

func newEngine(t *testing.T, splits domain.SplitTable) *Engine {
	t.Helper()
	policy := domain.DefaultWithdrawalPolicy()
	if splits != nil {
		policy.Splits = splits
	}
	e, err := NewEngine(policy)
	require.NoError(t, err)
	return e
}

func TestComputeIntroductionTable(t *testing.T) {
	e := newEngine(t, nil)

	b, err := e.Compute(domain.WithdrawalRequest{Amount: 1000, DirectIntroductions: 6})
	require.NoError(t, err)

	assert.InDelta(t, 750, b.WithdrawAmount, 1e-9)
	assert.InDelta(t, 37.5, b.AdminFee, 1e-9)
	assert.InDelta(t, 712.5, b.UserReceives, 1e-9)
	assert.InDelta(t, 250, b.ReinvestAmount, 1e-9)
	assert.Zero(t, b.CompoundBonus)
	assert.InDelta(t, 250, b.TotalReinvest, 1e-9)
	assert.InDelta(t, 3.75, b.EffectiveFeeRate, 1e-9)
	assert.Equal(t, "75/25", b.SplitLabel)
	assert.Equal(t, "Active", b.TierName)
	assert.False(t, b.AutoCompound)
}

func TestComputeTierBoundaries(t *testing.T) {
	intro := newEngine(t, nil)
	collection := newEngine(t, domain.CollectionSplitTable())

	cases := []struct {
		engine  *Engine
		directs int
		label   string
	}{
		{intro, 0, "70/30"},
		{intro, 4, "70/30"},
		{intro, 5, "75/25"},
		{intro, 19, "75/25"},
		{intro, 20, "80/20"},
		{intro, -3, "70/30"},
		{collection, 0, "70/30"},
		{collection, 1, "80/20"},
		{collection, 2, "80/20"},
		{collection, 3, "90/10"},
		{collection, 50, "90/10"},
	}
	for _, tc := range cases {
		b, err := tc.engine.Compute(domain.WithdrawalRequest{Amount: 100, DirectIntroductions: tc.directs})
		require.NoError(t, err)
		assert.Equal(t, tc.label, b.SplitLabel, "directs %d", tc.directs)
	}
}

func TestComputeAutoCompound(t *testing.T) {
	e := newEngine(t, nil)

	b, err := e.Compute(domain.WithdrawalRequest{Amount: 400, DirectIntroductions: 25, AutoCompound: true})
	require.NoError(t, err)

	assert.Zero(t, b.WithdrawAmount)
	assert.Zero(t, b.AdminFee)
	assert.Zero(t, b.UserReceives)
	assert.InDelta(t, 400, b.ReinvestAmount, 1e-9)
	assert.InDelta(t, 20, b.CompoundBonus, 1e-9)
	assert.InDelta(t, 420, b.TotalReinvest, 1e-9)
	assert.Zero(t, b.EffectiveFeeRate)
	assert.Equal(t, "0/100", b.SplitLabel)
	assert.Equal(t, AutoCompoundTier, b.TierName)
	assert.True(t, b.AutoCompound)
}

func TestComputeIdentities(t *testing.T) {
	e := newEngine(t, nil)
	amounts := []float64{0.01, 1, 3.33, 99.99, 1000, 123456.78}

	for _, amount := range amounts {
		for _, directs := range []int{0, 5, 20} {
			for _, auto := range []bool{false, true} {
				b, err := e.Compute(domain.WithdrawalRequest{Amount: amount, DirectIntroductions: directs, AutoCompound: auto})
				require.NoError(t, err)
				assert.InDelta(t, b.WithdrawAmount, b.UserReceives+b.AdminFee, 1e-9)
				assert.InDelta(t, amount, b.WithdrawAmount+b.ReinvestAmount, 1e-9)
				assert.InDelta(t, b.ReinvestAmount+b.CompoundBonus, b.TotalReinvest, 1e-9)
			}
		}
	}
}

func TestComputeRejectsInvalidAmount(t *testing.T) {
	e := newEngine(t, nil)
	for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := e.Compute(domain.WithdrawalRequest{Amount: amount})
		var amountErr *domain.InvalidAmountError
		assert.ErrorAs(t, err, &amountErr, "amount %v", amount)
	}
}

func TestNewEngineRejectsInvalidTables(t *testing.T) {
	tables := []domain.SplitTable{
		{},
		{{Name: "late", MinReferrals: 1, WithdrawPercent: 70, ReinvestPercent: 30}},
		{{Name: "a", MinReferrals: 0, WithdrawPercent: 70, ReinvestPercent: 20}},
		{
			{Name: "a", MinReferrals: 0, WithdrawPercent: 70, ReinvestPercent: 30},
			{Name: "b", MinReferrals: 0, WithdrawPercent: 80, ReinvestPercent: 20},
		},
	}
	for _, table := range tables {
		policy := domain.DefaultWithdrawalPolicy()
		policy.Splits = table
		_, err := NewEngine(policy)
		assert.True(t, errors.Is(err, domain.ErrInvalidPolicy), "table %+v", table)
	}

	policy := domain.DefaultWithdrawalPolicy()
	policy.FeeRate = 1.5
	_, err := NewEngine(policy)
	assert.True(t, errors.Is(err, domain.ErrInvalidPolicy))
}

func TestProgressFor(t *testing.T) {
	table := domain.IntroductionSplitTable()

	p, err := ProgressFor(table, 3)
	require.NoError(t, err)
	assert.Equal(t, "Starter", p.Current.Name)
	require.NotNil(t, p.Next)
	assert.Equal(t, 5, p.Next.MinReferrals)
	assert.Equal(t, 2, p.ReferralsNeeded)
	assert.InDelta(t, 60, p.Percent, 1e-9)

	p, err = ProgressFor(table, 10)
	require.NoError(t, err)
	assert.Equal(t, "Active", p.Current.Name)
	assert.Equal(t, 10, p.ReferralsNeeded)
	assert.InDelta(t, 50, p.Percent, 1e-9)

	p, err = ProgressFor(table, 30)
	require.NoError(t, err)
	assert.Equal(t, "Leader", p.Current.Name)
	assert.Nil(t, p.Next)
	assert.Zero(t, p.ReferralsNeeded)
	assert.Equal(t, 100.0, p.Percent)

	_, err = ProgressFor(nil, 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidPolicy))
}
