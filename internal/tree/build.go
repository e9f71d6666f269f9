// Package tree reconstructs sponsor networks and derives filtered or searched views of them.
package tree

import (
	"sort"

	"github.com/vanshika/comptree/backend/internal/domain"
)

// Build assembles a rooted tree from sponsor edges and per-member attributes.
// Exactly one edge must carry an empty sponsor. Children are ordered by JoinOrder,
// ties broken by edge order.
func Build(edges []domain.Edge, attrs map[string]domain.MemberAttributes) (*domain.Tree, error) {
	if len(edges) == 0 {
		return nil, domain.ErrEmptyNetwork
	}

	declared := make(map[string]int, len(edges))
	var roots []string
	for i, edge := range edges {
		if _, dup := declared[edge.MemberID]; dup {
			return nil, &domain.DuplicateMemberError{MemberID: edge.MemberID}
		}
		declared[edge.MemberID] = i
		if edge.SponsorID == "" {
			roots = append(roots, edge.MemberID)
		}
	}

	for _, edge := range edges {
		if _, ok := attrs[edge.MemberID]; !ok {
			return nil, &domain.DanglingEdgeError{MemberID: edge.MemberID, SponsorID: edge.SponsorID, Missing: edge.MemberID}
		}
		if edge.SponsorID == "" {
			continue
		}
		_, hasAttrs := attrs[edge.SponsorID]
		_, isDeclared := declared[edge.SponsorID]
		if !hasAttrs || !isDeclared {
			return nil, &domain.DanglingEdgeError{MemberID: edge.MemberID, SponsorID: edge.SponsorID, Missing: edge.SponsorID}
		}
	}

	switch {
	case len(roots) > 1:
		return nil, &domain.MultipleRootsError{RootIDs: roots}
	case len(roots) == 0:
		// Every member has a sponsor, so the sponsor chain must loop somewhere.
		return nil, &domain.CycleDetectedError{MemberID: edges[0].MemberID}
	}

	children := make(map[string][]string, len(edges))
	for _, edge := range edges {
		if edge.SponsorID != "" {
			children[edge.SponsorID] = append(children[edge.SponsorID], edge.MemberID)
		}
	}
	for sponsor, ids := range children {
		sort.SliceStable(ids, func(i, j int) bool {
			return attrs[ids[i]].JoinOrder < attrs[ids[j]].JoinOrder
		})
		children[sponsor] = ids
	}

	root := newMember(roots[0], attrs[roots[0]], 1)
	visited := map[string]struct{}{root.ID: {}}
	order := make([]*domain.Member, 0, len(edges))
	queue := []*domain.Member{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, childID := range children[current.ID] {
			if _, seen := visited[childID]; seen {
				return nil, &domain.CycleDetectedError{MemberID: childID}
			}
			visited[childID] = struct{}{}
			child := newMember(childID, attrs[childID], current.Level+1)
			current.Children = append(current.Children, child)
			queue = append(queue, child)
		}
	}

	if len(order) != len(edges) {
		for _, edge := range edges {
			if _, ok := visited[edge.MemberID]; !ok {
				return nil, &domain.CycleDetectedError{MemberID: edge.MemberID}
			}
		}
	}

	// Reverse BFS order visits every child before its parent.
	for i := len(order) - 1; i >= 0; i-- {
		m := order[i]
		m.DirectIntroductions = len(m.Children)
		m.CommunitySize = 1
		for _, child := range m.Children {
			m.CommunitySize += child.CommunitySize
		}
	}

	return &domain.Tree{Root: root, Size: len(order)}, nil
}

func newMember(id string, a domain.MemberAttributes, level int) *domain.Member {
	return &domain.Member{
		ID:               id,
		Name:             a.Name,
		Level:            level,
		Tier:             a.Tier,
		IsActive:         a.IsActive,
		JoinOrder:        a.JoinOrder,
		RegistrationTime: a.RegistrationTime,
		Volume:           a.Volume,
	}
}

// FromRecords splits fetched member records into the attribute map Build expects.
func FromRecords(records []domain.MemberRecord) map[string]domain.MemberAttributes {
	attrs := make(map[string]domain.MemberAttributes, len(records))
	for _, rec := range records {
		attrs[rec.ID] = rec.MemberAttributes
	}
	return attrs
}
