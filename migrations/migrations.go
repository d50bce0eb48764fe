// Package migrations embeds the PostgreSQL schema for the wishlist snapshot
// backend.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
