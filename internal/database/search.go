package database

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"qrganizer/internal/inventory"
	"qrganizer/internal/model"
)

// Search ranks spaces and items whose names contain the characters of query
// in order. Higher scores rank first; ties keep spaces before items and then
// id order. A non-positive limit returns every hit.
func (h *hierarchy) Search(ctx context.Context, query string, limit int) ([]*model.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &inventory.ValidationError{Field: "query", Reason: "must not be empty"}
	}

	spaces, err := h.q.ListSpaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing spaces: %w", err)
	}
	items, err := h.q.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	tb := newTreeBuilder(spaces, items)

	var hits []*model.SearchHit

	names := make([]string, len(spaces))
	for i, s := range spaces {
		names[i] = s.Name
	}
	for _, m := range fuzzy.Find(query, names) {
		s := spaces[m.Index]
		hits = append(hits, &model.SearchHit{
			Kind:  string(inventory.KindSpace),
			ID:    s.ID,
			Name:  s.Name,
			Path:  tb.pathNames(s.ID),
			Score: m.Score,
		})
	}

	names = make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	for _, m := range fuzzy.Find(query, names) {
		it := items[m.Index]
		var path []string
		if it.SpaceID.Valid {
			if s, ok := tb.spaces[it.SpaceID.Int64]; ok {
				path = append(tb.pathNames(s.ID), s.Name)
			}
		}
		hits = append(hits, &model.SearchHit{
			Kind:  string(inventory.KindItem),
			ID:    it.ID,
			Name:  it.Name,
			Path:  path,
			Score: m.Score,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Kind != hits[j].Kind {
			return hits[i].Kind == string(inventory.KindSpace)
		}
		return hits[i].ID < hits[j].ID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	for _, hit := range hits {
		if hit.Path == nil {
			hit.Path = []string{}
		}
	}
	return hits, nil
}
