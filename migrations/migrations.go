// Package migrations embeds the SQL schema migrations so both the server
// binary and the test harness can apply them with goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
