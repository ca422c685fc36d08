package stmt_store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type failingConn struct{}

func (failingConn) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, errors.New("prepare failed")
}

func TestStore(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	var (
		ctx   = context.Background()
		mux   sync.Mutex
		store = New(2, time.Hour)
	)

	for _, query := range []string{"SELECT 1", "SELECT 2", "SELECT 3"} {
		mux.Lock()
		stmt, err := store.New(ctx, query, db, &mux)
		require.NoError(t, err)
		require.NotNil(t, stmt.Stmt)
	}

	assert.Equal(t, []string{"SELECT 2", "SELECT 3"}, store.Keys())

	stmt, ok := store.Get("SELECT 3")
	require.True(t, ok)

	var value int
	require.NoError(t, stmt.QueryRowContext(ctx).Scan(&value))
	assert.Equal(t, 3, value)

	store.Delete("SELECT 3")
	_, ok = store.Get("SELECT 3")
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestStorePrepareError(t *testing.T) {
	var (
		mux   sync.Mutex
		store = New(0, 0)
	)

	mux.Lock()
	_, err := store.New(context.Background(), "SELECT 1", failingConn{}, &mux)
	assert.EqualError(t, err, "prepare failed")

	_, ok := store.Get("SELECT 1")
	assert.False(t, ok, "failed statements should not be cached")
}
