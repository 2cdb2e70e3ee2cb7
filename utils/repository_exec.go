package utils

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNoRowsAffected is returned by ExecWithCheck when a checked
// statement matched nothing. Repositories translate it into their own
// domain conflict errors with errors.Is.
var ErrNoRowsAffected = errors.New("no rows affected")

type ExecType int

const (
	ExecInsert ExecType = iota
	ExecUpdate
	ExecDelete
)

// ExecWithCheck executes the statement and, for updates and deletes,
// fails with ErrNoRowsAffected when nothing matched. Conditional
// updates use this to detect lost races without a prior SELECT. The
// executor may be a *sqlx.DB or an open *sqlx.Tx.
func ExecWithCheck(ctx context.Context, e sqlx.ExecerContext, query string, execType ExecType, args ...any) error {
	result, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}

	// if Insert operation, don't need to check rows affected
	if execType == ExecInsert {
		return nil
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}
