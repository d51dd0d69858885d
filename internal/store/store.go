// Package store persists users, items and claims in SQLite.
package store

import (
	"database/sql"
	"strings"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/erazemk/lostfound/internal/store")

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
