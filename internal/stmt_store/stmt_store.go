package stmt_store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Stmt a prepared statement, callers wait on prepared before using it
type Stmt struct {
	*sql.Stmt
	prepared   chan struct{}
	prepareErr error
}

func (stmt *Stmt) Error() error {
	return stmt.prepareErr
}

func (stmt *Stmt) Close() error {
	<-stmt.prepared

	if stmt.Stmt != nil {
		return stmt.Stmt.Close()
	}
	return nil
}

// ConnPool a connection pool able to prepare statements
type ConnPool interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Store prepared statements keyed by SQL
type Store interface {
	// New prepares key on conn and stores it, locker is held by the caller and released
	// once the statement is stored so other callers can wait for it
	New(ctx context.Context, key string, conn ConnPool, locker sync.Locker) (*Stmt, error)
	Keys() []string
	Get(key string) (*Stmt, bool)
	Delete(key string)
	Len() int
}

const (
	defaultTTL = time.Hour * 24
)

// New creates a store evicting the least recently used statement past size, statements
// expire after ttl. size <= 0 means no limit.
func New(size int, ttl time.Duration) Store {
	if size < 0 {
		size = 0
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}

	onEvicted := func(_ string, v *Stmt) {
		if v != nil {
			go v.Close()
		}
	}
	return &lruStore{lru: expirable.NewLRU[string, *Stmt](size, onEvicted, ttl)}
}

type lruStore struct {
	lru *expirable.LRU[string, *Stmt]
}

func (s *lruStore) Keys() []string {
	return s.lru.Keys()
}

func (s *lruStore) Len() int {
	return s.lru.Len()
}

func (s *lruStore) Get(key string) (*Stmt, bool) {
	stmt, ok := s.lru.Get(key)
	if ok && stmt != nil {
		<-stmt.prepared
	}
	return stmt, ok
}

func (s *lruStore) Delete(key string) {
	s.lru.Remove(key)
}

func (s *lruStore) New(ctx context.Context, key string, conn ConnPool, locker sync.Locker) (_ *Stmt, err error) {
	cacheStmt := &Stmt{prepared: make(chan struct{})}
	s.lru.Add(key, cacheStmt)
	locker.Unlock()

	defer close(cacheStmt.prepared)

	cacheStmt.Stmt, err = conn.PrepareContext(ctx, key)
	if err != nil {
		cacheStmt.prepareErr = err
		s.Delete(key)
		return &Stmt{}, err
	}

	return cacheStmt, nil
}
