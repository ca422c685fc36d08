package tests

import (
	"gorm.io/relations"
	"gorm.io/relations/clause"
	"gorm.io/relations/logger"
)

// DummyDialector a dialector compiling statements for a database that is never connected
type DummyDialector struct{}

func (DummyDialector) Name() string {
	return "dummy"
}

func (DummyDialector) Initialize(*relations.DB) error {
	return nil
}

func (DummyDialector) BindVarTo(writer clause.Writer, stmt *relations.Statement, v interface{}) {
	writer.WriteByte('?')
}

func (DummyDialector) QuoteTo(writer clause.Writer, str string) {
	writer.WriteByte('`')
	writer.WriteString(str)
	writer.WriteByte('`')
}

func (DummyDialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, nil, `"`, vars...)
}
