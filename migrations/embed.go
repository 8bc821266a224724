package migrations

import "embed"

// FS holds the schema migrations applied at startup and in tests.
//
//go:embed *.sql
var FS embed.FS
