package domain

import "math"

// WithdrawalRequest is the qualification tuple plus requested amount.
type WithdrawalRequest struct {
	Amount              float64
	DirectIntroductions int
	AutoCompound        bool
}

// WithdrawalBreakdown is the fee/withdraw/reinvest/bonus split of a request.
type WithdrawalBreakdown struct {
	TotalAmount      float64
	WithdrawAmount   float64
	AdminFee         float64
	UserReceives     float64
	ReinvestAmount   float64
	CompoundBonus    float64
	TotalReinvest    float64
	EffectiveFeeRate float64
	SplitLabel       string

	TierName        string
	WithdrawPercent float64
	ReinvestPercent float64
	AutoCompound    bool
}

// RoundCurrency rounds value to the given number of decimal places.
func RoundCurrency(value float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
