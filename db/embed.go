// Package db embeds the order journal schema.
package db

import _ "embed"

// Schema creates the journal tables. It is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
