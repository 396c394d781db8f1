package database

import (
	"qrganizer/internal/database/sqlc"
	"qrganizer/internal/model"
)

// treeBuilder assembles SpaceNode trees from flat rows. Nodes are looked up
// by id, so a corrupted parent chain is cut off instead of recursing forever.
type treeBuilder struct {
	spaces   map[int64]sqlc.Space
	children map[int64][]int64
	items    map[int64][]*model.Item
	rootIDs  []int64
}

func newTreeBuilder(spaces []sqlc.Space, items []sqlc.Item) *treeBuilder {
	tb := &treeBuilder{
		spaces:   make(map[int64]sqlc.Space, len(spaces)),
		children: make(map[int64][]int64),
		items:    make(map[int64][]*model.Item),
	}
	for _, s := range spaces {
		tb.spaces[s.ID] = s
		if s.ParentID.Valid {
			tb.children[s.ParentID.Int64] = append(tb.children[s.ParentID.Int64], s.ID)
		} else {
			tb.rootIDs = append(tb.rootIDs, s.ID)
		}
	}
	for _, it := range items {
		if it.SpaceID.Valid {
			tb.items[it.SpaceID.Int64] = append(tb.items[it.SpaceID.Int64], toItem(it))
		}
	}
	return tb
}

func (tb *treeBuilder) roots() []*model.SpaceNode {
	visited := make(map[int64]bool)
	out := make([]*model.SpaceNode, 0, len(tb.rootIDs))
	for _, id := range tb.rootIDs {
		out = append(out, tb.build(id, visited))
	}
	return out
}

func (tb *treeBuilder) node(id int64) (*model.SpaceNode, bool) {
	if _, ok := tb.spaces[id]; !ok {
		return nil, false
	}
	return tb.build(id, make(map[int64]bool)), true
}

func (tb *treeBuilder) build(id int64, visited map[int64]bool) *model.SpaceNode {
	visited[id] = true
	n := &model.SpaceNode{
		Space:    *toSpace(tb.spaces[id]),
		Children: []*model.SpaceNode{},
		Items:    tb.items[id],
	}
	if n.Items == nil {
		n.Items = []*model.Item{}
	}
	for _, cid := range tb.children[id] {
		if visited[cid] {
			continue
		}
		n.Children = append(n.Children, tb.build(cid, visited))
	}
	return n
}

// pathNames returns the names of the spaces enclosing id, root first,
// excluding id itself.
func (tb *treeBuilder) pathNames(id int64) []string {
	var names []string
	seen := map[int64]bool{id: true}
	s, ok := tb.spaces[id]
	for ok && s.ParentID.Valid && !seen[s.ParentID.Int64] {
		seen[s.ParentID.Int64] = true
		s, ok = tb.spaces[s.ParentID.Int64]
		if ok {
			names = append(names, s.Name)
		}
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}
