// Package migrations embeds the SQL migrations of the shops table.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
