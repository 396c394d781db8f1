package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"qrganizer/internal/database/sqlc"
	"qrganizer/internal/inventory"
	"qrganizer/internal/model"
)

// hierarchy implements inventory.Hierarchy over queries bound to one
// transaction. It is never shared across transactions.
type hierarchy struct {
	q      *sqlc.Queries
	clock  inventory.Clock
	logger inventory.Logger
}

var _ inventory.Hierarchy = (*hierarchy)(nil)

// Space operations

func (h *hierarchy) CreateSpace(ctx context.Context, name string, parentID *int64) (*model.Space, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}

	var depth int64
	if parentID != nil {
		parent, err := h.space(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		depth = parent.Depth + 1
	}

	now := h.clock.Now()
	id, err := h.q.InsertSpace(ctx, sqlc.InsertSpaceParams{
		Name:      name,
		ParentID:  nullInt64(parentID),
		Depth:     depth,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("inserting space: %w", storageError(err))
	}

	created, err := h.space(ctx, id)
	if err != nil {
		return nil, err
	}
	h.logger.Info("space created", "id", id, "name", name, "depth", depth)
	return toSpace(created), nil
}

func (h *hierarchy) UpdateSpace(ctx context.Context, id int64, name string) (*model.Space, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}

	n, err := h.q.UpdateSpaceName(ctx, sqlc.UpdateSpaceNameParams{
		Name:      name,
		UpdatedAt: h.clock.Now(),
		ID:        id,
	})
	if err != nil {
		return nil, fmt.Errorf("renaming space: %w", storageError(err))
	}
	if n == 0 {
		return nil, &inventory.NotFoundError{Kind: inventory.KindSpace, ID: id}
	}

	h.logger.Info("space renamed", "id", id, "name", name)
	return h.GetSpace(ctx, id)
}

// ReparentSpace validates the move against the new parent's ancestor chain,
// rewires parent_id and then rewrites depth for the whole moved subtree.
func (h *hierarchy) ReparentSpace(ctx context.Context, id int64, newParentID *int64) (*model.Space, error) {
	if _, err := h.space(ctx, id); err != nil {
		return nil, err
	}

	var depth int64
	if newParentID != nil {
		if *newParentID == id {
			return nil, &inventory.CycleError{SpaceID: id, NewParentID: id}
		}
		parent, err := h.space(ctx, *newParentID)
		if err != nil {
			return nil, err
		}
		if err := h.checkNotAncestor(ctx, id, parent); err != nil {
			return nil, err
		}
		depth = parent.Depth + 1
	}

	if _, err := h.q.UpdateSpaceParent(ctx, sqlc.UpdateSpaceParentParams{
		ParentID:  nullInt64(newParentID),
		UpdatedAt: h.clock.Now(),
		ID:        id,
	}); err != nil {
		return nil, fmt.Errorf("updating space parent: %w", storageError(err))
	}

	n, err := h.recomputeDepths(ctx, id, depth)
	if err != nil {
		return nil, err
	}

	h.logger.Info("space reparented", "id", id, "parent_id", formatID(newParentID), "depth", depth, "subtree", n)
	return h.GetSpace(ctx, id)
}

// checkNotAncestor walks from parent up to its root and fails if the walk
// passes through id. The walk is capped at the space count so a corrupted
// chain cannot loop forever.
func (h *hierarchy) checkNotAncestor(ctx context.Context, id int64, parent sqlc.Space) error {
	limit, err := h.q.CountSpaces(ctx)
	if err != nil {
		return fmt.Errorf("counting spaces: %w", err)
	}

	cur := parent
	for steps := int64(0); ; steps++ {
		if cur.ID == id {
			return &inventory.CycleError{SpaceID: id, NewParentID: parent.ID}
		}
		if !cur.ParentID.Valid {
			return nil
		}
		if steps >= limit {
			return fmt.Errorf("%w: ancestor chain of space %d does not reach a root", inventory.ErrIntegrityViolation, parent.ID)
		}
		next, err := h.q.GetSpace(ctx, cur.ParentID.Int64)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: space %d has missing parent %d", inventory.ErrIntegrityViolation, cur.ID, cur.ParentID.Int64)
			}
			return fmt.Errorf("loading space %d: %w", cur.ParentID.Int64, err)
		}
		cur = next
	}
}

// recomputeDepths assigns rootDepth to rootID and parent depth + 1 to every
// descendant, breadth first. Returns the number of spaces visited.
func (h *hierarchy) recomputeDepths(ctx context.Context, rootID, rootDepth int64) (int, error) {
	type pending struct {
		id    int64
		depth int64
	}

	limit, err := h.q.CountSpaces(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting spaces: %w", err)
	}

	visited := make(map[int64]bool)
	queue := []pending{{id: rootID, depth: rootDepth}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		if visited[p.id] || int64(len(visited)) >= limit {
			return 0, fmt.Errorf("%w: subtree of space %d revisits space %d", inventory.ErrIntegrityViolation, rootID, p.id)
		}
		visited[p.id] = true

		if err := h.q.UpdateSpaceDepth(ctx, sqlc.UpdateSpaceDepthParams{Depth: p.depth, ID: p.id}); err != nil {
			return 0, fmt.Errorf("updating depth of space %d: %w", p.id, storageError(err))
		}

		children, err := h.q.ListChildSpaces(ctx, sql.NullInt64{Int64: p.id, Valid: true})
		if err != nil {
			return 0, fmt.Errorf("listing children of space %d: %w", p.id, err)
		}
		for _, c := range children {
			queue = append(queue, pending{id: c.ID, depth: p.depth + 1})
		}
	}
	return len(visited), nil
}

// DeleteSpace removes the items of the whole subtree first, then the spaces
// from the leaves upward.
func (h *hierarchy) DeleteSpace(ctx context.Context, id int64) (*inventory.DeleteResult, error) {
	if _, err := h.space(ctx, id); err != nil {
		return nil, err
	}

	ids, err := h.subtreeIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &inventory.DeleteResult{}
	for _, sid := range ids {
		n, err := h.q.DeleteItemsBySpace(ctx, sql.NullInt64{Int64: sid, Valid: true})
		if err != nil {
			return nil, fmt.Errorf("deleting items of space %d: %w", sid, storageError(err))
		}
		result.Items += int(n)
	}

	for i := len(ids) - 1; i >= 0; i-- {
		n, err := h.q.DeleteSpace(ctx, ids[i])
		if err != nil {
			return nil, fmt.Errorf("deleting space %d: %w", ids[i], storageError(err))
		}
		result.Spaces += int(n)
	}

	h.logger.Info("space deleted", "id", id, "spaces", result.Spaces, "items", result.Items)
	return result, nil
}

// subtreeIDs returns id and all its descendants in breadth-first order, so
// every parent precedes its children.
func (h *hierarchy) subtreeIDs(ctx context.Context, id int64) ([]int64, error) {
	limit, err := h.q.CountSpaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting spaces: %w", err)
	}

	seen := map[int64]bool{id: true}
	ids := []int64{id}
	for i := 0; i < len(ids); i++ {
		children, err := h.q.ListChildSpaces(ctx, sql.NullInt64{Int64: ids[i], Valid: true})
		if err != nil {
			return nil, fmt.Errorf("listing children of space %d: %w", ids[i], err)
		}
		for _, c := range children {
			if seen[c.ID] || int64(len(ids)) >= limit {
				return nil, fmt.Errorf("%w: subtree of space %d revisits space %d", inventory.ErrIntegrityViolation, id, c.ID)
			}
			seen[c.ID] = true
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (h *hierarchy) GetSpace(ctx context.Context, id int64) (*model.Space, error) {
	sp, err := h.space(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSpace(sp), nil
}

func (h *hierarchy) ListSpaces(ctx context.Context) ([]*model.Space, error) {
	rows, err := h.q.ListSpaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing spaces: %w", err)
	}
	return toSpaces(rows), nil
}

func (h *hierarchy) GetPath(ctx context.Context, id int64) ([]*model.Space, error) {
	limit, err := h.q.CountSpaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting spaces: %w", err)
	}

	cur, err := h.space(ctx, id)
	if err != nil {
		return nil, err
	}

	path := []*model.Space{toSpace(cur)}
	for cur.ParentID.Valid {
		if int64(len(path)) >= limit {
			return nil, fmt.Errorf("%w: ancestor chain of space %d does not reach a root", inventory.ErrIntegrityViolation, id)
		}
		cur, err = h.space(ctx, cur.ParentID.Int64)
		if err != nil {
			return nil, err
		}
		path = append(path, toSpace(cur))
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

func (h *hierarchy) GetSubtree(ctx context.Context, spaceID *int64) ([]*model.SpaceNode, error) {
	spaces, err := h.q.ListSpaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing spaces: %w", err)
	}
	items, err := h.q.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	tb := newTreeBuilder(spaces, items)
	if spaceID == nil {
		return tb.roots(), nil
	}

	root, ok := tb.node(*spaceID)
	if !ok {
		return nil, &inventory.NotFoundError{Kind: inventory.KindSpace, ID: *spaceID}
	}
	return []*model.SpaceNode{root}, nil
}

func (h *hierarchy) GetChildren(ctx context.Context, spaceID int64) ([]*model.SpaceNode, error) {
	if _, err := h.space(ctx, spaceID); err != nil {
		return nil, err
	}

	children, err := h.q.ListChildSpaces(ctx, sql.NullInt64{Int64: spaceID, Valid: true})
	if err != nil {
		return nil, fmt.Errorf("listing children of space %d: %w", spaceID, err)
	}

	nodes := make([]*model.SpaceNode, len(children))
	for i, c := range children {
		items, err := h.q.ListItemsBySpace(ctx, sql.NullInt64{Int64: c.ID, Valid: true})
		if err != nil {
			return nil, fmt.Errorf("listing items of space %d: %w", c.ID, err)
		}
		nodes[i] = &model.SpaceNode{
			Space:    *toSpace(c),
			Children: []*model.SpaceNode{},
			Items:    toItems(items),
		}
	}
	return nodes, nil
}

func (h *hierarchy) space(ctx context.Context, id int64) (sqlc.Space, error) {
	sp, err := h.q.GetSpace(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sqlc.Space{}, &inventory.NotFoundError{Kind: inventory.KindSpace, ID: id}
		}
		return sqlc.Space{}, fmt.Errorf("loading space %d: %w", id, err)
	}
	return sp, nil
}

// Item operations

func (h *hierarchy) CreateItem(ctx context.Context, name string, description *string, spaceID *int64) (*model.Item, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}
	if spaceID != nil {
		if _, err := h.space(ctx, *spaceID); err != nil {
			return nil, err
		}
	}

	now := h.clock.Now()
	id, err := h.q.InsertItem(ctx, sqlc.InsertItemParams{
		Name:        name,
		Description: nullString(description),
		SpaceID:     nullInt64(spaceID),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("inserting item: %w", storageError(err))
	}

	h.logger.Info("item created", "id", id, "name", name, "space_id", formatID(spaceID))
	return h.GetItem(ctx, id)
}

func (h *hierarchy) UpdateItem(ctx context.Context, id int64, name string, description *string) (*model.Item, error) {
	name, err := requireName(name)
	if err != nil {
		return nil, err
	}

	n, err := h.q.UpdateItemDetails(ctx, sqlc.UpdateItemDetailsParams{
		Name:        name,
		Description: nullString(description),
		UpdatedAt:   h.clock.Now(),
		ID:          id,
	})
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", storageError(err))
	}
	if n == 0 {
		return nil, &inventory.NotFoundError{Kind: inventory.KindItem, ID: id}
	}

	h.logger.Info("item updated", "id", id, "name", name)
	return h.GetItem(ctx, id)
}

func (h *hierarchy) MoveItem(ctx context.Context, id int64, spaceID *int64) (*model.Item, error) {
	if _, err := h.GetItem(ctx, id); err != nil {
		return nil, err
	}
	if spaceID != nil {
		if _, err := h.space(ctx, *spaceID); err != nil {
			return nil, err
		}
	}

	if _, err := h.q.UpdateItemSpace(ctx, sqlc.UpdateItemSpaceParams{
		SpaceID:   nullInt64(spaceID),
		UpdatedAt: h.clock.Now(),
		ID:        id,
	}); err != nil {
		return nil, fmt.Errorf("moving item: %w", storageError(err))
	}

	h.logger.Info("item moved", "id", id, "space_id", formatID(spaceID))
	return h.GetItem(ctx, id)
}

func (h *hierarchy) DeleteItem(ctx context.Context, id int64) error {
	n, err := h.q.DeleteItem(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", storageError(err))
	}
	if n == 0 {
		return &inventory.NotFoundError{Kind: inventory.KindItem, ID: id}
	}

	h.logger.Info("item deleted", "id", id)
	return nil
}

func (h *hierarchy) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	it, err := h.q.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &inventory.NotFoundError{Kind: inventory.KindItem, ID: id}
		}
		return nil, fmt.Errorf("loading item %d: %w", id, err)
	}
	return toItem(it), nil
}

func (h *hierarchy) ListItems(ctx context.Context) ([]*model.Item, error) {
	rows, err := h.q.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return toItems(rows), nil
}

func (h *hierarchy) ListItemsInSpace(ctx context.Context, spaceID int64) ([]*model.Item, error) {
	if _, err := h.space(ctx, spaceID); err != nil {
		return nil, err
	}
	rows, err := h.q.ListItemsBySpace(ctx, sql.NullInt64{Int64: spaceID, Valid: true})
	if err != nil {
		return nil, fmt.Errorf("listing items of space %d: %w", spaceID, err)
	}
	return toItems(rows), nil
}

// Command log

func (h *hierarchy) RecordCommand(ctx context.Context, rec *model.CommandRecord) (*model.CommandRecord, error) {
	intent := rec.Intent
	if intent == "" {
		intent = "{}"
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = h.clock.Now()
	}

	id, err := h.q.InsertCommand(ctx, sqlc.InsertCommandParams{
		Text:      rec.Text,
		Action:    rec.Action,
		Intent:    intent,
		Outcome:   rec.Outcome,
		Status:    rec.Status,
		CreatedAt: createdAt,
	})
	if err != nil {
		return nil, fmt.Errorf("recording command: %w", storageError(err))
	}

	out := *rec
	out.ID = id
	out.Intent = intent
	out.CreatedAt = createdAt
	return &out, nil
}

func (h *hierarchy) ListCommands(ctx context.Context, limit int) ([]*model.CommandRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := h.q.ListCommands(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing commands: %w", err)
	}

	out := make([]*model.CommandRecord, len(rows))
	for i, r := range rows {
		out[i] = &model.CommandRecord{
			ID:        r.ID,
			Text:      r.Text,
			Action:    r.Action,
			Intent:    r.Intent,
			Outcome:   r.Outcome,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		}
	}
	return out, nil
}

// requireName trims name and rejects it when nothing is left.
func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &inventory.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return name, nil
}

// storageError maps SQLite constraint failures onto ErrIntegrityViolation.
func storageError(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", inventory.ErrIntegrityViolation, err)
	}
	return err
}

func formatID(id *int64) string {
	if id == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *id)
}
