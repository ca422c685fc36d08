package relations

import (
	"context"
	"database/sql"

	"gorm.io/relations/clause"
)

// Dialector database dialector
type Dialector interface {
	Name() string
	Initialize(*DB) error
	BindVarTo(writer clause.Writer, stmt *Statement, v interface{})
	QuoteTo(clause.Writer, string)
	Explain(sql string, vars ...interface{}) string
}

// ConnPool db conns pool interface
type ConnPool interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// ErrorTranslator translates driver errors into ErrUndefinedTable or ErrUndefinedColumn,
// used when Config.TranslateError is set
type ErrorTranslator interface {
	Translate(err error) error
}
