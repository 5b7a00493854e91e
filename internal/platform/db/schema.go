package db

import _ "embed"

// Schema is the PostgreSQL DDL of the ledger store.
//
//go:embed schema.sql
var Schema string
