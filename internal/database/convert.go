package database

import (
	"database/sql"

	"qrganizer/internal/database/sqlc"
	"qrganizer/internal/model"
)

func toSpace(s sqlc.Space) *model.Space {
	return &model.Space{
		ID:        s.ID,
		Name:      s.Name,
		ParentID:  ptrInt64(s.ParentID),
		Depth:     s.Depth,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toSpaces(rows []sqlc.Space) []*model.Space {
	out := make([]*model.Space, len(rows))
	for i, r := range rows {
		out[i] = toSpace(r)
	}
	return out
}

func toItem(it sqlc.Item) *model.Item {
	return &model.Item{
		ID:          it.ID,
		Name:        it.Name,
		Description: ptrString(it.Description),
		SpaceID:     ptrInt64(it.SpaceID),
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
}

func toItems(rows []sqlc.Item) []*model.Item {
	out := make([]*model.Item, len(rows))
	for i, r := range rows {
		out[i] = toItem(r)
	}
	return out
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func ptrInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func ptrString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
