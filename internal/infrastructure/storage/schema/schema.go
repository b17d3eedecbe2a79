// Package schema embeds the DDL of the SQL stores.
package schema

import _ "embed"

// Postgres is the DDL applied by the postgres store.
//
//go:embed postgres.sql
var Postgres string

// SQLite is the DDL applied by the sqlite store.
//
//go:embed sqlite.sql
var SQLite string
