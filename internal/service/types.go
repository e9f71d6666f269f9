package service

import (
	"strings"
	"time"

	"github.com/vanshika/comptree/backend/internal/domain"
	"github.com/vanshika/comptree/backend/internal/withdrawal"
)

// MemberInput is the inbound payload accepted by bulk ingestion.
type MemberInput struct {
	ID           string     `json:"id"`
	SponsorID    string     `json:"sponsorId,omitempty"`
	Name         string     `json:"name"`
	Tier         string     `json:"tier"`
	Volume       float64    `json:"volume"`
	IsActive     bool       `json:"isActive"`
	JoinOrder    int64      `json:"joinOrder"`
	RegisteredAt *time.Time `json:"registeredAt,omitempty"`
}

// ToRecord normalizes the input into a storable member record.
func (in MemberInput) ToRecord() domain.MemberRecord {
	rec := domain.MemberRecord{
		ID: normalizeMemberID(in.ID),
		MemberAttributes: domain.MemberAttributes{
			Name:      sanitizeString(in.Name),
			Tier:      strings.TrimSpace(in.Tier),
			Volume:    in.Volume,
			IsActive:  in.IsActive,
			JoinOrder: in.JoinOrder,
		},
	}
	if in.RegisteredAt != nil {
		rec.RegistrationTime = in.RegisteredAt.UTC()
	}
	return rec
}

// Edge returns the normalized sponsor edge of the input.
func (in MemberInput) Edge() domain.Edge {
	return domain.Edge{MemberID: normalizeMemberID(in.ID), SponsorID: normalizeMemberID(in.SponsorID)}
}

// Snapshot is one applied recomputation of a network.
type Snapshot struct {
	RootID     string
	Generation uint64
	Tree       *domain.Tree
	Summary    domain.AnalyticsSummary
	BuiltAt    time.Time
}

// MemberView is a single member with its breadcrumb path and split progress.
type MemberView struct {
	Member   *domain.Member
	Path     []string
	Progress withdrawal.Progress
}

// FilterParams selects the members kept in a filtered view.
type FilterParams struct {
	ActiveOnly bool
	MinLevel   int
	MaxLevel   int
	Tier       string
}

func (p FilterParams) predicate() domain.Predicate {
	return domain.Predicate{
		ActiveOnly: p.ActiveOnly,
		MinLevel:   p.MinLevel,
		MaxLevel:   p.MaxLevel,
		Tier:       strings.TrimSpace(p.Tier),
	}
}

// FilteredView is a pruned tree and its re-aggregated summary.
type FilteredView struct {
	Tree    *domain.Tree
	Summary domain.AnalyticsSummary
}

// WithdrawalInput is a withdrawal request for a member of a tracked network.
type WithdrawalInput struct {
	RootID       string
	MemberID     string
	Amount       float64
	AutoCompound bool
}
