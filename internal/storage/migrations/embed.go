// Package migrations embeds the SQL schema migrations for both supported
// store backends. Files are applied in lexical order per dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
