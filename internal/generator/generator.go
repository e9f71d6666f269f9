package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/vanshika/comptree/backend/internal/service"
)

// Dataset contains the generated members, sponsors before the members they introduce.
type Dataset struct {
	RootID  string                `json:"rootId"`
	Members []service.MemberInput `json:"members"`
}

// Generator produces synthetic sponsor networks.
type Generator struct {
	cfg   Config
	rand  *rand.Rand
	nowFn func() time.Time
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	defaults := DefaultConfig()
	if cfg.MaxLevel <= 0 {
		cfg.MaxLevel = defaults.MaxLevel
	}
	if cfg.RootChildren <= 0 {
		cfg.RootChildren = defaults.RootChildren
	}
	if cfg.MaxChildren <= 0 {
		cfg.MaxChildren = defaults.MaxChildren
	}
	if cfg.MaxMembers <= 0 {
		cfg.MaxMembers = defaults.MaxMembers
	}
	if cfg.ActiveChance <= 0 || cfg.ActiveChance > 1 {
		cfg.ActiveChance = defaults.ActiveChance
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = defaults.Tiers
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:   cfg,
		rand:  rand.New(rand.NewSource(cfg.Seed)),
		nowFn: time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (g *Generator) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		g.nowFn = nowFn
	}
}

type pending struct {
	id    string
	level int
}

// Generate builds a network breadth first. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	now := g.nowFn().UTC()
	seq := 0

	rootID := g.cfg.RootID
	if rootID == "" {
		rootID = g.nextID(seq)
	}
	root := g.member(rootID, "", 1, seq, now)
	if g.cfg.NamedRoot != "" {
		root.Name = g.cfg.NamedRoot
	}
	members := []service.MemberInput{root}
	seen := map[string]struct{}{rootID: {}}

	queue := []pending{{id: rootID, level: 1}}
	for len(queue) > 0 && len(members) < g.cfg.MaxMembers {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		parent := queue[0]
		queue = queue[1:]
		if parent.level >= g.cfg.MaxLevel {
			continue
		}

		count := g.childCount(parent.level)
		for i := 0; i < count && len(members) < g.cfg.MaxMembers; i++ {
			seq++
			id := g.nextID(seq)
			for attempt := 1; ; attempt++ {
				if _, dup := seen[id]; !dup {
					break
				}
				id = fmt.Sprintf("%s-%d", g.nextID(seq), attempt)
			}
			seen[id] = struct{}{}

			child := g.member(id, parent.id, parent.level+1, seq, now)
			members = append(members, child)
			queue = append(queue, pending{id: id, level: parent.level + 1})
		}
	}

	return Dataset{RootID: rootID, Members: members}, nil
}

func (g *Generator) childCount(level int) int {
	if level == 1 {
		return g.cfg.RootChildren
	}
	return g.rand.Intn(g.cfg.MaxChildren + 1)
}

func (g *Generator) member(id, sponsorID string, level, seq int, now time.Time) service.MemberInput {
	tier := g.cfg.Tiers[g.rand.Intn(len(g.cfg.Tiers))]
	teamSize := g.rand.Intn(100) + 1
	volume := float64(teamSize) * tier.Price * (0.8 + g.rand.Float64()*0.4)
	registered := now.Add(-time.Duration(g.rand.Intn(365*24)) * time.Hour)

	return service.MemberInput{
		ID:           id,
		SponsorID:    sponsorID,
		Name:         fmt.Sprintf("Level %d Member %d", level, seq),
		Tier:         tier.Name,
		Volume:       roundCents(volume),
		IsActive:     g.rand.Float64() < g.cfg.ActiveChance,
		JoinOrder:    int64(seq),
		RegisteredAt: &registered,
	}
}

func (g *Generator) nextID(seq int) string {
	if !g.cfg.HexIDs {
		return fmt.Sprintf("MBR-%06d", seq+1)
	}
	return fmt.Sprintf("0x%016x%016x%08x", g.rand.Uint64(), g.rand.Uint64(), g.rand.Uint32())
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
