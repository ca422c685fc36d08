package postgres

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/relations"
	"gorm.io/relations/clause"
	"gorm.io/relations/errtranslator"
	"gorm.io/relations/logger"
)

var numericPlaceholder = regexp.MustCompile(`\$(\d+)`)

type Config struct {
	DSN  string
	Conn relations.ConnPool
	// PreferSimpleProtocol disables implicit prepared statement usage
	PreferSimpleProtocol bool
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
	return "postgres"
}

func (dialector Dialector) Initialize(db *relations.DB) (err error) {
	if dialector.Conn != nil {
		db.ConnPool = dialector.Conn
		return nil
	}

	config, err := pgx.ParseConfig(dialector.DSN)
	if err != nil {
		return err
	}

	if dialector.PreferSimpleProtocol {
		config.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	db.ConnPool = stdlib.OpenDB(*config)
	return nil
}

func (dialector Dialector) BindVarTo(writer clause.Writer, stmt *relations.Statement, v interface{}) {
	writer.WriteByte('$')
	writer.WriteString(strconv.Itoa(len(stmt.Vars)))
}

func (dialector Dialector) QuoteTo(writer clause.Writer, str string) {
	writer.WriteByte('"')
	writer.WriteString(strings.ReplaceAll(str, `"`, `""`))
	writer.WriteByte('"')
}

func (dialector Dialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, numericPlaceholder, `'`, vars...)
}

func (dialector Dialector) Translate(err error) error {
	return (&errtranslator.PostgresErrTranslator{}).Translate(err)
}
