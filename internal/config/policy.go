package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vanshika/comptree/backend/internal/domain"
)

// Split presets accepted by the policy file.
const (
	SplitPresetIntroduction = "introduction"
	SplitPresetCollection   = "collection"
)

// Policy bundles the reward and withdrawal policies handed to the engine.
type Policy struct {
	Rewards    domain.RewardPolicy
	Withdrawal domain.WithdrawalPolicy
}

// DefaultPolicy returns the built-in reward plan and the introduction split ladder.
func DefaultPolicy() Policy {
	return Policy{
		Rewards:    domain.DefaultRewardPolicy(),
		Withdrawal: domain.DefaultWithdrawalPolicy(),
	}
}

type policyFile struct {
	Rewards struct {
		CapMultiplier *float64   `yaml:"cap_multiplier" validate:"omitempty,gt=0"`
		MaxDepth      *int       `yaml:"max_depth" validate:"omitempty,gte=1"`
		Tiers         []tierFile `yaml:"tiers" validate:"omitempty,dive"`
		Rates         struct {
			DirectBonus *float64 `yaml:"direct_bonus" validate:"omitempty,gte=0,lte=1"`
			Level       *float64 `yaml:"level" validate:"omitempty,gte=0,lte=1"`
			Global      *float64 `yaml:"global" validate:"omitempty,gte=0,lte=1"`
			Leadership  *float64 `yaml:"leadership" validate:"omitempty,gte=0,lte=1"`
			Growth      *float64 `yaml:"growth" validate:"omitempty,gte=0,lte=1"`
			Credited    *float64 `yaml:"credited" validate:"omitempty,gte=0,lte=1"`
		} `yaml:"rates"`
		Leadership struct {
			MinDirects   *int `yaml:"min_directs" validate:"omitempty,gte=0"`
			MinCommunity *int `yaml:"min_community" validate:"omitempty,gte=0"`
		} `yaml:"leadership"`
	} `yaml:"rewards"`
	Withdrawal struct {
		Preset            string      `yaml:"preset" validate:"omitempty,oneof=introduction collection"`
		FeeRate           *float64    `yaml:"fee_rate" validate:"omitempty,gte=0,lte=1"`
		CompoundBonusRate *float64    `yaml:"compound_bonus_rate" validate:"omitempty,gte=0"`
		Splits            []splitFile `yaml:"splits" validate:"omitempty,dive"`
	} `yaml:"withdrawal"`
}

type tierFile struct {
	Name  string  `yaml:"name" validate:"required"`
	Price float64 `yaml:"price" validate:"gt=0"`
	Rank  int     `yaml:"rank" validate:"gte=0"`
}

type splitFile struct {
	Name            string  `yaml:"name" validate:"required"`
	MinReferrals    int     `yaml:"min_referrals" validate:"gte=0"`
	WithdrawPercent float64 `yaml:"withdraw_percent" validate:"gte=0,lte=100"`
	ReinvestPercent float64 `yaml:"reinvest_percent" validate:"gte=0,lte=100"`
}

var validate = validator.New()

// LoadPolicy reads a YAML policy file. An empty path yields DefaultPolicy.
func LoadPolicy(path string) (Policy, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPolicy(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(raw)
}

// ParsePolicy overlays a YAML document onto DefaultPolicy and validates the result.
func ParsePolicy(raw []byte) (Policy, error) {
	var f policyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return Policy{}, fmt.Errorf("%w: %v", domain.ErrInvalidPolicy, err)
	}

	p := DefaultPolicy()
	r := &p.Rewards
	fr := f.Rewards
	setFloat(&r.CapMultiplier, fr.CapMultiplier)
	setInt(&r.MaxDepth, fr.MaxDepth)
	setFloat(&r.DirectBonusRate, fr.Rates.DirectBonus)
	setFloat(&r.LevelRate, fr.Rates.Level)
	setFloat(&r.GlobalRate, fr.Rates.Global)
	setFloat(&r.LeadershipRate, fr.Rates.Leadership)
	setFloat(&r.GrowthRate, fr.Rates.Growth)
	setFloat(&r.CreditedRate, fr.Rates.Credited)
	setInt(&r.LeadershipMinDirects, fr.Leadership.MinDirects)
	setInt(&r.LeadershipMinCommunity, fr.Leadership.MinCommunity)
	if len(fr.Tiers) > 0 {
		r.Tiers = make(domain.TierTable, 0, len(fr.Tiers))
		for i, t := range fr.Tiers {
			rank := t.Rank
			if rank == 0 {
				rank = i + 1
			}
			r.Tiers = append(r.Tiers, domain.PackageTier{Name: t.Name, Price: t.Price, Rank: rank})
		}
	}

	w := &p.Withdrawal
	fw := f.Withdrawal
	if fw.Preset == SplitPresetCollection {
		w.Splits = domain.CollectionSplitTable()
	}
	if len(fw.Splits) > 0 {
		w.Splits = make(domain.SplitTable, 0, len(fw.Splits))
		for _, s := range fw.Splits {
			w.Splits = append(w.Splits, domain.SplitRule{
				Name:            s.Name,
				MinReferrals:    s.MinReferrals,
				WithdrawPercent: s.WithdrawPercent,
				ReinvestPercent: s.ReinvestPercent,
			})
		}
	}
	setFloat(&w.FeeRate, fw.FeeRate)
	setFloat(&w.CompoundBonusRate, fw.CompoundBonusRate)

	if err := p.Rewards.Validate(); err != nil {
		return Policy{}, err
	}
	if err := p.Withdrawal.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
