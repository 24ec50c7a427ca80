package migrations

import "embed"

// Files embeds the SQL migrations applied by `ledgerctl migrate`.
//
//go:embed *.sql
var Files embed.FS
