// Package migrations embeds the SQL schema migrations for the gatehouse
// database. They are applied with goose.
package migrations

import (
	"embed"
)

//go:embed *.sql
var FS embed.FS
