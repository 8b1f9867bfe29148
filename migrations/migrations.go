// Package migrations содержит встроенные SQL-миграции схемы WORTHY.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
