// Package migrations embeds the goose SQL migrations, one directory per
// goose dialect.
package migrations

import "embed"

// FS holds sql/<dialect>/*.sql.
//
//go:embed sql
var FS embed.FS
