package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResult struct {
	rows int64
	err  error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, r.err }

type fakeExecer struct {
	result    sql.Result
	execErr   error
	lastQuery string
	lastArgs  []any
}

func (e *fakeExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	e.lastQuery = query
	e.lastArgs = args
	if e.execErr != nil {
		return nil, e.execErr
	}
	return e.result, nil
}

func TestExecWithCheck_UpdateMatchedRows(t *testing.T) {
	execer := &fakeExecer{result: fakeResult{rows: 1}}

	err := ExecWithCheck(context.Background(), execer, "UPDATE t SET x = $1", ExecUpdate, 42)

	require.NoError(t, err)
	assert.Equal(t, "UPDATE t SET x = $1", execer.lastQuery)
	assert.Equal(t, []any{42}, execer.lastArgs)
}

func TestExecWithCheck_UpdateNoRowsIsSentinel(t *testing.T) {
	execer := &fakeExecer{result: fakeResult{rows: 0}}

	err := ExecWithCheck(context.Background(), execer, "UPDATE t SET x = $1 WHERE y = $2", ExecUpdate, 1, 2)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRowsAffected)
}

func TestExecWithCheck_DeleteNoRowsIsSentinel(t *testing.T) {
	execer := &fakeExecer{result: fakeResult{rows: 0}}

	err := ExecWithCheck(context.Background(), execer, "DELETE FROM t WHERE y = $1", ExecDelete, 2)

	assert.ErrorIs(t, err, ErrNoRowsAffected)
}

func TestExecWithCheck_InsertSkipsRowsCheck(t *testing.T) {
	// ON CONFLICT DO NOTHING inserts legitimately report zero rows.
	execer := &fakeExecer{result: fakeResult{rows: 0}}

	err := ExecWithCheck(context.Background(), execer, "INSERT INTO t VALUES ($1)", ExecInsert, 1)

	assert.NoError(t, err)
}

func TestExecWithCheck_ExecErrorWrapped(t *testing.T) {
	boom := fmt.Errorf("connection reset")
	execer := &fakeExecer{execErr: boom}

	err := ExecWithCheck(context.Background(), execer, "UPDATE t SET x = 1", ExecUpdate)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrNoRowsAffected))
}
