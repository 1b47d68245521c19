package migrations

import "embed"

// Files embeds the ordered SQL migrations.
//
//go:embed *.sql
var Files embed.FS
