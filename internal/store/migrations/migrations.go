// ABOUTME: Embedded goose migrations for every supported database dialect
// ABOUTME: Each dialect lives in its own directory with identically numbered files

package migrations

import "embed"

// FS holds the sqlite/ and postgres/ migration directories.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
