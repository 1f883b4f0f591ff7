// Package migrations embebe los archivos SQL de migración para PostgreSQL.
package migrations

import "embed"

// FS contiene las migraciones, en formato {version}_{name}.sql.
//
//go:embed *.sql
var FS embed.FS
