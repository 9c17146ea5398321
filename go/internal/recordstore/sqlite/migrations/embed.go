package migrations

import "embed"

// FS contains the embedded SQLite schema for session records.
//
//go:embed *.sql
var FS embed.FS
