package migrate

import "embed"

// Embedded lets binaries run migrations without the source tree on disk.
//
//go:embed migrations/*.sql
var Embedded embed.FS

// EmbeddedDir is the directory name inside Embedded.
const EmbeddedDir = "migrations"
