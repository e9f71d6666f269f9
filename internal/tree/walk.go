package tree

import (
	"strings"

	"github.com/vanshika/comptree/backend/internal/domain"
)

// Walk visits every member in pre-order, children in join order.
// Returning false from fn stops the walk.
func Walk(t *domain.Tree, fn func(*domain.Member) bool) {
	if t == nil || t.Root == nil {
		return
	}
	stack := []*domain.Member{t.Root}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(m) {
			return
		}
		for i := len(m.Children) - 1; i >= 0; i-- {
			stack = append(stack, m.Children[i])
		}
	}
}

// Find returns the member with the given ID.
func Find(t *domain.Tree, id string) (*domain.Member, bool) {
	var found *domain.Member
	Walk(t, func(m *domain.Member) bool {
		if m.ID == id {
			found = m
			return false
		}
		return true
	})
	return found, found != nil
}

// Search returns members whose ID or name contains query, ignoring case, in pre-order.
// A limit of zero or less returns every match.
func Search(t *domain.Tree, query string, limit int) []*domain.Member {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}
	var matches []*domain.Member
	Walk(t, func(m *domain.Member) bool {
		if strings.Contains(strings.ToLower(m.ID), needle) || strings.Contains(strings.ToLower(m.Name), needle) {
			matches = append(matches, m)
			if limit > 0 && len(matches) >= limit {
				return false
			}
		}
		return true
	})
	return matches
}

// Filter returns a pruned copy of t. A member is kept only when it matches p, and a
// rejected member takes its whole subtree with it. The root is always kept as an anchor;
// AnchorOnly on the result reports that the root itself did not match.
// CommunitySize and DirectIntroductions keep their unfiltered values.
func Filter(t *domain.Tree, p domain.Predicate) *domain.Tree {
	if t == nil || t.Root == nil {
		return &domain.Tree{}
	}

	type frame struct {
		src *domain.Member
		dst *domain.Member
	}

	root := copyNode(t.Root)
	size := 1
	stack := []frame{{src: t.Root, dst: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range top.src.Children {
			if !p.Matches(child) {
				continue
			}
			cp := copyNode(child)
			top.dst.Children = append(top.dst.Children, cp)
			stack = append(stack, frame{src: child, dst: cp})
			size++
		}
	}

	return &domain.Tree{Root: root, Size: size, AnchorOnly: !p.Matches(t.Root)}
}

func copyNode(m *domain.Member) *domain.Member {
	cp := *m
	cp.Children = nil
	return &cp
}

// ParentIndex is a derived child-to-sponsor lookup over a tree.
type ParentIndex struct {
	rootID  string
	parents map[string]string
	members map[string]*domain.Member
}

// NewParentIndex indexes every member of t.
func NewParentIndex(t *domain.Tree) *ParentIndex {
	idx := &ParentIndex{
		parents: make(map[string]string),
		members: make(map[string]*domain.Member),
	}
	if t == nil || t.Root == nil {
		return idx
	}
	idx.rootID = t.Root.ID
	Walk(t, func(m *domain.Member) bool {
		idx.members[m.ID] = m
		for _, child := range m.Children {
			idx.parents[child.ID] = m.ID
		}
		return true
	})
	return idx
}

// Parent returns the sponsor of id. The root and unknown members report false.
func (p *ParentIndex) Parent(id string) (string, bool) {
	parent, ok := p.parents[id]
	return parent, ok
}

// Member returns the indexed member with the given ID.
func (p *ParentIndex) Member(id string) (*domain.Member, bool) {
	m, ok := p.members[id]
	return m, ok
}

// Path returns the IDs from the root down to id, or nil when id is not in the tree.
func (p *ParentIndex) Path(id string) []string {
	if _, ok := p.members[id]; !ok {
		return nil
	}
	path := []string{id}
	for current := id; current != p.rootID; {
		parent, ok := p.parents[current]
		if !ok {
			break
		}
		path = append(path, parent)
		current = parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
