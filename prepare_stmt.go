package relations

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"time"

	"gorm.io/relations/internal/stmt_store"
)

// PreparedStmtDB a ConnPool preparing every statement once and reusing it
type PreparedStmtDB struct {
	Stmts stmt_store.Store
	Mux   *sync.RWMutex
	ConnPool
}

// NewPreparedStmtDB wraps connPool, at most maxSize statements are kept for ttl
func NewPreparedStmtDB(connPool ConnPool, maxSize int, ttl time.Duration) *PreparedStmtDB {
	return &PreparedStmtDB{
		ConnPool: connPool,
		Stmts:    stmt_store.New(maxSize, ttl),
		Mux:      &sync.RWMutex{},
	}
}

// GetDBConn returns the wrapped `*sql.DB`
func (db *PreparedStmtDB) GetDBConn() (*sql.DB, error) {
	if sqldb, ok := db.ConnPool.(*sql.DB); ok {
		return sqldb, nil
	}
	return nil, ErrInvalidDB
}

// Close closes every prepared statement, the wrapped pool stays open
func (db *PreparedStmtDB) Close() {
	db.Mux.Lock()
	defer db.Mux.Unlock()

	for _, key := range db.Stmts.Keys() {
		db.Stmts.Delete(key)
	}
}

func (db *PreparedStmtDB) prepare(ctx context.Context, query string) (*stmt_store.Stmt, error) {
	db.Mux.RLock()
	if stmt, ok := db.Stmts.Get(query); ok {
		db.Mux.RUnlock()
		return stmt, stmt.Error()
	}
	db.Mux.RUnlock()

	conn, ok := db.ConnPool.(stmt_store.ConnPool)
	if !ok {
		return nil, ErrInvalidDB
	}

	db.Mux.Lock()
	// double check
	if stmt, ok := db.Stmts.Get(query); ok {
		db.Mux.Unlock()
		return stmt, stmt.Error()
	}

	return db.Stmts.New(ctx, query, conn, db.Mux)
}

func (db *PreparedStmtDB) QueryContext(ctx context.Context, query string, args ...interface{}) (rows *sql.Rows, err error) {
	stmt, err := db.prepare(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err = stmt.QueryContext(ctx, args...)
	if errors.Is(err, driver.ErrBadConn) {
		db.Mux.Lock()
		defer db.Mux.Unlock()

		db.Stmts.Delete(query)
	}
	return rows, err
}
