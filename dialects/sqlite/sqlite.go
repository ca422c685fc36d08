package sqlite

import (
	"database/sql"
	"strings"

	"gorm.io/relations"
	"gorm.io/relations/clause"
	"gorm.io/relations/errtranslator"
	"gorm.io/relations/logger"
	_ "modernc.org/sqlite"
)

// DriverName the database/sql driver registered by modernc.org/sqlite
const DriverName = "sqlite"

type Config struct {
	DriverName string
	DSN        string
	Conn       relations.ConnPool
}

type Dialector struct {
	*Config
}

func Open(dsn string) relations.Dialector {
	return &Dialector{Config: &Config{DSN: dsn}}
}

func New(config Config) relations.Dialector {
	return &Dialector{Config: &config}
}

func (dialector Dialector) Name() string {
	return "sqlite"
}

func (dialector Dialector) Initialize(db *relations.DB) (err error) {
	if dialector.DriverName == "" {
		dialector.DriverName = DriverName
	}

	if dialector.Conn != nil {
		db.ConnPool = dialector.Conn
		return nil
	}

	sqlDB, err := sql.Open(dialector.DriverName, dialector.DSN)
	if err != nil {
		return err
	}

	// every connection to an in-memory database opens a new, empty database
	if strings.Contains(dialector.DSN, ":memory:") || strings.Contains(dialector.DSN, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	}

	db.ConnPool = sqlDB
	return nil
}

func (dialector Dialector) BindVarTo(writer clause.Writer, stmt *relations.Statement, v interface{}) {
	writer.WriteByte('?')
}

func (dialector Dialector) QuoteTo(writer clause.Writer, str string) {
	writer.WriteByte('`')
	writer.WriteString(strings.ReplaceAll(str, "`", "``"))
	writer.WriteByte('`')
}

func (dialector Dialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, nil, `"`, vars...)
}

func (dialector Dialector) Translate(err error) error {
	return (&errtranslator.SqliteErrTranslator{}).Translate(err)
}
