package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/comptree/backend/internal/domain"
)

func mixedTree(t *testing.T) *domain.Tree {
	t.Helper()
	attrs := map[string]domain.MemberAttributes{
		"0xroot":  {Name: "Root", Tier: "Diamond", Volume: 900, IsActive: true, JoinOrder: 0},
		"0xalice": {Name: "Alice", Tier: "Gold", Volume: 300, IsActive: true, JoinOrder: 1},
		"0xbob":   {Name: "Bob", Tier: "Bronze", Volume: 50, IsActive: false, JoinOrder: 2},
		"0xcarol": {Name: "Carol", Tier: "Gold", Volume: 120, IsActive: true, JoinOrder: 3},
		"0xdave":  {Name: "Dave", Tier: "Silver", Volume: 80, IsActive: true, JoinOrder: 4},
		"0xerin":  {Name: "Erin", Tier: "Gold", Volume: 40, IsActive: true, JoinOrder: 5},
	}
	edges := []domain.Edge{
		{MemberID: "0xroot"},
		{MemberID: "0xalice", SponsorID: "0xroot"},
		{MemberID: "0xbob", SponsorID: "0xroot"},
		{MemberID: "0xcarol", SponsorID: "0xalice"},
		{MemberID: "0xdave", SponsorID: "0xbob"},
		{MemberID: "0xerin", SponsorID: "0xcarol"},
	}
	tr, err := Build(edges, attrs)
	require.NoError(t, err)
	return tr
}

func ids(members []*domain.Member) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.ID)
	}
	return out
}

func collect(tr *domain.Tree) []*domain.Member {
	var out []*domain.Member
	Walk(tr, func(m *domain.Member) bool {
		out = append(out, m)
		return true
	})
	return out
}

func TestWalkIsPreOrder(t *testing.T) {
	tr := mixedTree(t)
	assert.Equal(t, []string{"0xroot", "0xalice", "0xcarol", "0xerin", "0xbob", "0xdave"}, ids(collect(tr)))
}

func TestWalkStopsEarly(t *testing.T) {
	tr := mixedTree(t)
	visited := 0
	Walk(tr, func(*domain.Member) bool {
		visited++
		return visited < 2
	})
	assert.Equal(t, 2, visited)
}

func TestWalkNilTree(t *testing.T) {
	called := false
	Walk(nil, func(*domain.Member) bool {
		called = true
		return true
	})
	assert.False(t, called)
}

func TestFilterActiveOnlyDropsSubtree(t *testing.T) {
	tr := mixedTree(t)
	filtered := Filter(tr, domain.Predicate{ActiveOnly: true})

	assert.False(t, filtered.AnchorOnly)
	assert.Equal(t, []string{"0xroot", "0xalice", "0xcarol", "0xerin"}, ids(collect(filtered)))
	assert.Equal(t, 4, filtered.Size)

	_, ok := Find(filtered, "0xdave")
	assert.False(t, ok, "active child of an inactive member must be dropped with its sponsor")
}

func TestFilterTierAllMatchesEverything(t *testing.T) {
	tr := mixedTree(t)
	filtered := Filter(tr, domain.Predicate{Tier: domain.TierAll})
	assert.Equal(t, tr.Size, filtered.Size)
}

func TestFilterKeepsRootAsAnchor(t *testing.T) {
	tr := mixedTree(t)
	filtered := Filter(tr, domain.Predicate{Tier: "Gold"})

	assert.True(t, filtered.AnchorOnly)
	assert.Equal(t, "0xroot", filtered.Root.ID)
	assert.Equal(t, []string{"0xroot", "0xalice", "0xcarol", "0xerin"}, ids(collect(filtered)))
}

func TestFilterLevelRange(t *testing.T) {
	tr := mixedTree(t)
	filtered := Filter(tr, domain.Predicate{MaxLevel: 2})
	assert.Equal(t, []string{"0xroot", "0xalice", "0xbob"}, ids(collect(filtered)))
}

func TestFilterSubsetPreservesAttributes(t *testing.T) {
	tr := mixedTree(t)
	preds := []domain.Predicate{
		{ActiveOnly: true},
		{Tier: "Gold"},
		{MinLevel: 2, MaxLevel: 3},
		{ActiveOnly: true, Tier: "Silver"},
		{MinLevel: 9},
	}
	for _, pred := range preds {
		filtered := Filter(tr, pred)
		for _, m := range collect(filtered) {
			orig, ok := Find(tr, m.ID)
			require.True(t, ok)
			if m.ID != filtered.Root.ID {
				assert.True(t, pred.Matches(m), "%s should satisfy %+v", m.ID, pred)
			}
			assert.Equal(t, orig.Tier, m.Tier)
			assert.Equal(t, orig.Volume, m.Volume)
			assert.Equal(t, orig.Level, m.Level)
			assert.Equal(t, orig.CommunitySize, m.CommunitySize)
		}
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	tr := mixedTree(t)
	_ = Filter(tr, domain.Predicate{ActiveOnly: true})
	assert.Len(t, tr.Root.Children, 2)
	assert.Equal(t, 6, tr.Size)
}

func TestFilterNilTree(t *testing.T) {
	filtered := Filter(nil, domain.Predicate{})
	require.NotNil(t, filtered)
	assert.Nil(t, filtered.Root)
}

func TestSearchMatchesNameOrIDCaseInsensitive(t *testing.T) {
	tr := mixedTree(t)

	assert.Equal(t, []string{"0xcarol"}, ids(Search(tr, "CAR", 0)))
	assert.Equal(t, []string{"0xalice"}, ids(Search(tr, "0XAL", 0)))
	assert.Len(t, Search(tr, "0x", 0), 6)
	assert.Len(t, Search(tr, "0x", 2), 2)
	assert.Empty(t, Search(tr, "   ", 0))
	assert.Empty(t, Search(tr, "nobody", 0))
}

func TestParentIndexPath(t *testing.T) {
	tr := mixedTree(t)
	idx := NewParentIndex(tr)

	assert.Equal(t, []string{"0xroot", "0xalice", "0xcarol", "0xerin"}, idx.Path("0xerin"))
	assert.Equal(t, []string{"0xroot"}, idx.Path("0xroot"))
	assert.Nil(t, idx.Path("0xmissing"))

	parent, ok := idx.Parent("0xdave")
	require.True(t, ok)
	assert.Equal(t, "0xbob", parent)

	_, ok = idx.Parent("0xroot")
	assert.False(t, ok)

	m, ok := idx.Member("0xcarol")
	require.True(t, ok)
	assert.Equal(t, "Carol", m.Name)
}
