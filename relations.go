package relations

import (
	"database/sql"
	"fmt"
	"time"

	"gorm.io/relations/clause"
	"gorm.io/relations/logger"
	"gorm.io/relations/schema"
)

// Config relations config
type Config struct {
	// NamingStrategy tables, columns and join aliases naming strategy
	NamingStrategy schema.Namer
	// Logger
	Logger logger.Interface
	// DryRun compile statements without executing them
	DryRun bool
	// PrepareStmt executes fetches with cached prepared statements
	PrepareStmt bool
	// PrepareStmtMaxSize the most prepared statements kept, 0 keeps every statement
	PrepareStmtMaxSize int
	// PrepareStmtTTL how long an unused prepared statement is kept
	PrepareStmtTTL time.Duration
	// SkipUniqueFieldCheck disables the primary or unique field requirement on queries with
	// joins, queries can still enable it with EnsureUniqueField
	SkipUniqueFieldCheck bool
	// TranslateError translates driver errors with the dialector's ErrorTranslator
	TranslateError bool

	// ConnPool db conn pool
	ConnPool ConnPool
	// Dialector database dialector
	Dialector
}

// DB relations DB definition
type DB struct {
	*Config
}

// Open initialize db session based on dialector
func Open(dialector Dialector, config *Config) (db *DB, err error) {
	if config == nil {
		config = &Config{}
	}

	if config.NamingStrategy == nil {
		config.NamingStrategy = schema.NamingStrategy{}
	}

	if config.Logger == nil {
		config.Logger = logger.Default
	}

	if dialector != nil {
		config.Dialector = dialector
	}

	db = &DB{Config: config}

	if config.Dialector != nil {
		err = config.Dialector.Initialize(db)
	}

	if err == nil && config.PrepareStmt && config.ConnPool != nil {
		config.ConnPool = NewPreparedStmtDB(config.ConnPool, config.PrepareStmtMaxSize, config.PrepareStmtTTL)
	}
	return
}

// Model starts a query of the entity type s
func (db *DB) Model(s *schema.Schema) *Query {
	return newQuery(db, s)
}

// Debug start debug mode
func (db *DB) Debug() *DB {
	config := *db.Config
	config.Logger = db.Logger.LogMode(logger.Info)
	return &DB{Config: &config}
}

// Session returns a copy of db using the given logger, nil keeps the current one
func (db *DB) Session(l logger.Interface) *DB {
	config := *db.Config
	if l != nil {
		config.Logger = l
	}
	return &DB{Config: &config}
}

// DB returns `*sql.DB`
func (db *DB) DB() (*sql.DB, error) {
	if sqldb, ok := db.ConnPool.(*sql.DB); ok && sqldb != nil {
		return sqldb, nil
	}

	if prepared, ok := db.ConnPool.(*PreparedStmtDB); ok {
		return prepared.GetDBConn()
	}
	return nil, fmt.Errorf("%w: connection pool is not a *sql.DB", ErrInvalidDB)
}

func (db *DB) translateError(err error) error {
	if err == nil || !db.TranslateError {
		return err
	}

	if translator, ok := db.Dialector.(ErrorTranslator); ok {
		return translator.Translate(err)
	}
	return err
}

// Expr returns a raw expression, ? are replaced with bind vars
func Expr(expr string, args ...interface{}) clause.Expr {
	return clause.Expr{SQL: expr, Vars: args}
}
