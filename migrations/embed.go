// Package migrations embeds the goose SQL migrations for the service schema.
package migrations

import "embed"

// FS holds every migration file at its root, as goose expects.
//
//go:embed *.sql
var FS embed.FS
