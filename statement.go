package relations

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	"gorm.io/relations/clause"
	"gorm.io/relations/schema"
)

// Statement SQL builder of one fetch
type Statement struct {
	DB      *DB
	Context context.Context
	// Table the alias clause.CurrentTable resolves to
	Table string
	// Schema resolves field names of columns of the current table
	Schema *schema.Schema
	SQL    strings.Builder
	Vars   []interface{}
	Error  error
}

func newStatement(db *DB, ctx context.Context) *Statement {
	return &Statement{DB: db, Context: ctx}
}

// WriteString write string
func (stmt *Statement) WriteString(str string) (int, error) {
	return stmt.SQL.WriteString(str)
}

// WriteByte write byte
func (stmt *Statement) WriteByte(c byte) error {
	return stmt.SQL.WriteByte(c)
}

// WriteQuoted write quoted value
func (stmt *Statement) WriteQuoted(value interface{}) {
	stmt.QuoteTo(&stmt.SQL, value)
}

// QuoteTo write quoted value to writer
func (stmt *Statement) QuoteTo(writer clause.Writer, field interface{}) {
	write := func(raw bool, str string) {
		if raw {
			writer.WriteString(str)
		} else {
			stmt.DB.Dialector.QuoteTo(writer, str)
		}
	}

	switch v := field.(type) {
	case clause.Table:
		if v.Name == clause.CurrentTable {
			write(v.Raw, stmt.Table)
		} else {
			write(v.Raw, v.Name)
		}

		if v.Alias != "" && v.Alias != v.Name {
			writer.WriteByte(' ')
			write(v.Raw, v.Alias)
		}
	case clause.Column:
		name := v.Name
		if v.Table != "" {
			if v.Table == clause.CurrentTable {
				write(v.Raw, stmt.Table)
				name = stmt.columnName(name)
			} else {
				write(v.Raw, v.Table)
			}
			writer.WriteByte('.')
		}

		write(v.Raw, name)

		if v.Alias != "" {
			writer.WriteString(" AS ")
			write(v.Raw, v.Alias)
		}
	case []clause.Column:
		writer.WriteByte('(')
		for idx, d := range v {
			if idx > 0 {
				writer.WriteByte(',')
			}
			stmt.QuoteTo(writer, d)
		}
		writer.WriteByte(')')
	case string:
		stmt.DB.Dialector.QuoteTo(writer, v)
	default:
		stmt.DB.Dialector.QuoteTo(writer, fmt.Sprint(field))
	}
}

// columnName maps a field name of the current schema to its column
func (stmt *Statement) columnName(name string) string {
	if stmt.Schema != nil {
		if field, ok := stmt.Schema.FieldsByName[name]; ok {
			return field.DBName
		}
	}
	return name
}

// Quote returns quoted value
func (stmt *Statement) Quote(field interface{}) string {
	var builder strings.Builder
	stmt.QuoteTo(&builder, field)
	return builder.String()
}

// AddVar add var
func (stmt *Statement) AddVar(writer clause.Writer, vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			writer.WriteByte(',')
		}

		switch v := v.(type) {
		case clause.Column, clause.Table:
			stmt.QuoteTo(writer, v)
		case driver.Valuer:
			stmt.Vars = append(stmt.Vars, v)
			stmt.DB.Dialector.BindVarTo(writer, stmt, v)
		case clause.Expression:
			if writer == clause.Writer(stmt) || writer == clause.Writer(&stmt.SQL) {
				v.Build(stmt)
			} else {
				stmt.AddError(fmt.Errorf("unsupported nested expression %#v", v))
			}
		case []interface{}:
			if len(v) > 0 {
				writer.WriteByte('(')
				stmt.AddVar(writer, v...)
				writer.WriteByte(')')
			} else {
				writer.WriteString("(NULL)")
			}
		default:
			stmt.Vars = append(stmt.Vars, v)
			stmt.DB.Dialector.BindVarTo(writer, stmt, v)
		}
	}
}

// AddError add error
func (stmt *Statement) AddError(err error) error {
	if err == nil {
		return stmt.Error
	}
	if stmt.Error == nil {
		stmt.Error = err
	} else {
		stmt.Error = fmt.Errorf("%v; %w", stmt.Error, err)
	}
	return stmt.Error
}

// scopedOrders the orders of q qualified with its alias
func scopedOrders(q *Query) []clause.OrderByColumn {
	orders := make([]clause.OrderByColumn, 0, len(q.orders))
	for _, order := range q.orders {
		if order.Column.Table == clause.CurrentTable || order.Column.Table == "" {
			order.Column.Table = q.alias
			if field, ok := q.Schema.FieldsByName[order.Column.Name]; ok {
				order.Column.Name = field.DBName
			}
		}
		orders = append(orders, order)
	}
	return orders
}

// buildSelect writes the statement selecting root and its join tree
func (stmt *Statement) buildSelect(root *Query) {
	var (
		columns []clause.Column
		joins   []clause.Join
		groups  []*Query
		orders  []clause.OrderByColumn
	)

	var collect func(q *Query)
	collect = func(q *Query) {
		for _, field := range q.selected() {
			columns = append(columns, clause.Column{Table: q.alias, Name: field.DBName, Alias: q.columnAlias(field)})
		}

		joins = append(joins, q.clauses...)

		if q.via != nil && len(q.via.conditions) > 0 {
			groups = append(groups, q.via)
		}
		if len(q.conditions) > 0 {
			groups = append(groups, q)
		}

		if q.via != nil {
			orders = append(orders, scopedOrders(q.via)...)
		}
		orders = append(orders, scopedOrders(q)...)

		for _, join := range q.joins {
			collect(join)
		}
	}
	collect(root)

	stmt.Table, stmt.Schema = root.alias, root.Schema

	stmt.WriteString("SELECT ")
	clause.Select{Columns: columns}.Build(stmt)

	stmt.WriteString(" FROM ")
	clause.From{Tables: []clause.Table{{Name: root.Schema.Table, Alias: root.alias}}, Joins: joins}.Build(stmt)

	if len(groups) > 0 {
		exprs := make([]clause.Expression, 0, len(groups))
		for _, q := range groups {
			exprs = append(exprs, scopedExpr{query: q, wrap: len(groups) > 1 && compound(q.conditions)})
		}

		stmt.WriteString(" WHERE ")
		clause.Where{Exprs: exprs}.Build(stmt)
	}

	if len(orders) > 0 {
		stmt.WriteString(" ORDER BY ")
		clause.OrderBy{Columns: orders}.Build(stmt)
	}
}

// compound whether conditions need parentheses when ANDed with the conditions of other queries
func compound(conditions []clause.Expression) bool {
	if len(conditions) != 1 {
		return len(conditions) > 1
	}

	switch v := conditions[0].(type) {
	case clause.Expr:
		sql := strings.ToUpper(v.SQL)
		return strings.Contains(sql, " AND ") || strings.Contains(sql, " OR ")
	case clause.OrConditions:
		return len(v.Exprs) > 1
	}
	return false
}

// scopedExpr builds the conditions of query with clause.CurrentTable resolved to its alias
type scopedExpr struct {
	query *Query
	wrap  bool
}

func (scoped scopedExpr) Build(builder clause.Builder) {
	if stmt, ok := builder.(*Statement); ok {
		table, s := stmt.Table, stmt.Schema
		stmt.Table, stmt.Schema = scoped.query.alias, scoped.query.Schema
		defer func() {
			stmt.Table, stmt.Schema = table, s
		}()
	}

	if scoped.wrap {
		builder.WriteByte('(')
	}

	exprs := append([]clause.Expression(nil), scoped.query.conditions...)
	clause.Where{Exprs: exprs}.Build(builder)

	if scoped.wrap {
		builder.WriteByte(')')
	}
}
