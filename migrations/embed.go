// Package migrations embeds the SQL migration files applied by
// internal/storage's migration runner.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
