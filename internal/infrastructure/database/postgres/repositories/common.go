// Package repositories implements the scheduling persistence ports on
// PostgreSQL.
package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/lib/pq"
)

// queryExecutor abstracts sql.DB and sql.Tx
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// Postgres SQLSTATE codes the repositories react to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
