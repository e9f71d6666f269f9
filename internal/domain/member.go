package domain

import "time"

// Edge declares a sponsor relationship. An empty SponsorID marks the network root.
type Edge struct {
	MemberID  string
	SponsorID string
}

// MemberAttributes carries the per-member values fetched alongside the edge set.
type MemberAttributes struct {
	Name             string
	Tier             string
	Volume           float64
	IsActive         bool
	JoinOrder        int64
	RegistrationTime time.Time
}

// MemberRecord is the raw record returned by a network data source.
type MemberRecord struct {
	ID string
	MemberAttributes
}

// RewardBreakdown holds the five reward categories of a member.
type RewardBreakdown struct {
	DirectBonus       float64
	LevelRewards      float64
	GlobalRewards     float64
	LeadershipRewards float64
	GrowthPool        float64
}

// Total sums every category.
func (b RewardBreakdown) Total() float64 {
	return b.DirectBonus + b.LevelRewards + b.GlobalRewards + b.LeadershipRewards + b.GrowthPool
}

// Add returns the category-wise sum of b and other.
func (b RewardBreakdown) Add(other RewardBreakdown) RewardBreakdown {
	return RewardBreakdown{
		DirectBonus:       b.DirectBonus + other.DirectBonus,
		LevelRewards:      b.LevelRewards + other.LevelRewards,
		GlobalRewards:     b.GlobalRewards + other.GlobalRewards,
		LeadershipRewards: b.LeadershipRewards + other.LeadershipRewards,
		GrowthPool:        b.GrowthPool + other.GrowthPool,
	}
}

// Member is a node of the network tree. Children are owned exclusively by their parent
// and kept in join order; parent lookups go through a derived index.
type Member struct {
	ID                  string
	Name                string
	Level               int
	Tier                string
	IsActive            bool
	JoinOrder           int64
	RegistrationTime    time.Time
	DirectIntroductions int
	CommunitySize       int
	Volume              float64

	// Populated by the earnings calculator.
	Earnings            float64
	EarningsCap         float64
	IsCapped            bool
	LeadershipQualified bool
	Rewards             RewardBreakdown

	Children []*Member
}

// EarningsPercent reports credited earnings as a share of the cap.
func (m *Member) EarningsPercent() float64 {
	if m == nil || m.EarningsCap <= 0 {
		return 0
	}
	return m.Earnings / m.EarningsCap * 100
}

// shallowCopy copies every field except the children slice.
func (m *Member) shallowCopy() *Member {
	cp := *m
	cp.Children = nil
	return &cp
}

// Tree is an immutable rooted network. Filtering and annotation produce new trees.
type Tree struct {
	Root *Member
	// Size is the number of nodes reachable from Root.
	Size int
	// AnchorOnly is set on filtered trees whose root failed the predicate and was kept as an anchor.
	AnchorOnly bool
}

// Clone deep-copies the tree. mutate, when non-nil, is applied to every copied node
// before its children are attached.
func (t *Tree) Clone(mutate func(*Member) error) (*Tree, error) {
	if t == nil || t.Root == nil {
		return &Tree{}, nil
	}

	type frame struct {
		src *Member
		dst *Member
	}

	root := t.Root.shallowCopy()
	if mutate != nil {
		if err := mutate(root); err != nil {
			return nil, err
		}
	}
	stack := []frame{{src: t.Root, dst: root}}
	size := 1
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(top.src.Children) == 0 {
			continue
		}
		top.dst.Children = make([]*Member, len(top.src.Children))
		for i, child := range top.src.Children {
			cp := child.shallowCopy()
			if mutate != nil {
				if err := mutate(cp); err != nil {
					return nil, err
				}
			}
			top.dst.Children[i] = cp
			stack = append(stack, frame{src: child, dst: cp})
			size++
		}
	}

	return &Tree{Root: root, Size: size, AnchorOnly: t.AnchorOnly}, nil
}

// Predicate selects members during filtering. Tier "" or "all" matches any tier.
// MaxLevel <= 0 disables the upper bound.
type Predicate struct {
	ActiveOnly bool
	MinLevel   int
	MaxLevel   int
	Tier       string
}

// TierAll matches every package tier in a Predicate.
const TierAll = "all"

// Matches reports whether m satisfies the predicate.
func (p Predicate) Matches(m *Member) bool {
	if m == nil {
		return false
	}
	if p.ActiveOnly && !m.IsActive {
		return false
	}
	if p.MinLevel > 0 && m.Level < p.MinLevel {
		return false
	}
	if p.MaxLevel > 0 && m.Level > p.MaxLevel {
		return false
	}
	if p.Tier != "" && p.Tier != TierAll && m.Tier != p.Tier {
		return false
	}
	return true
}
