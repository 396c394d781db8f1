package database

import _ "embed"

// Schema is the full schema produced by applying every migration.
// It is regenerated from the migration files by tools/generate_schema.go.
//
//go:embed sqlc/schema.sql
var Schema string
