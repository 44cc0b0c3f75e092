// Package migrations carries the chunk-cache schema, applied at store
// open in version order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
