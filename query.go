package relations

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/relations/clause"
	"gorm.io/relations/schema"
)

type joinState int

const (
	stateUnresolved joinState = iota
	stateResolved
	stateCompiled
	stateParsed
	stateFailed
)

func (state joinState) String() string {
	switch state {
	case stateUnresolved:
		return "unresolved"
	case stateResolved:
		return "resolved"
	case stateCompiled:
		return "compiled"
	case stateParsed:
		return "parsed"
	case stateFailed:
		return "failed"
	}
	return fmt.Sprintf("joinState(%d)", int(state))
}

// Query a query of one entity type, also used as a join node when attached to a parent.
// A query is compiled once, build a new one per fetch.
type Query struct {
	Schema *schema.Schema
	Error  error

	db                *DB
	fields            []*schema.Field
	conditions        []clause.Expression
	orders            []clause.OrderByColumn
	require           bool
	ensureUniqueField *bool

	parent    *Query
	joins     []*Query
	joinType  clause.JoinType
	joinTypes map[string]clause.JoinType
	as        string
	on        []FieldSelector
	via       *Query
	first     bool

	state   joinState
	index   int
	alias   string
	unique  *schema.Field
	clauses []clause.Join
}

func newQuery(db *DB, s *schema.Schema) *Query {
	q := &Query{db: db, Schema: s, joinType: clause.LeftJoin}
	if s == nil {
		q.AddError(ErrMissingModel)
	}
	return q
}

// AddError add error to query
func (q *Query) AddError(err error) error {
	if err == nil {
		return q.Error
	}
	if q.Error == nil {
		q.Error = err
	} else {
		q.Error = fmt.Errorf("%v; %w", q.Error, err)
	}
	return q.Error
}

// Fields selects fields by name, all fields are selected when none are
func (q *Query) Fields(names ...string) *Query {
	if q.Schema == nil {
		return q
	}

	for _, name := range names {
		field := q.Schema.LookUpField(name)
		if field == nil {
			q.AddError(fmt.Errorf("%w: %v.%v", ErrUnknownField, q.Schema.Name, name))
			continue
		}

		selected := false
		for _, f := range q.fields {
			if f == field {
				selected = true
				break
			}
		}

		if !selected {
			q.fields = append(q.fields, field)
		}
	}
	return q
}

// Where add conditions, query is a clause.Expression, a map of field name to value or
// raw SQL with ? placeholders for args
func (q *Query) Where(query interface{}, args ...interface{}) *Query {
	if conds := q.buildConditions(query, args...); len(conds) > 0 {
		q.conditions = append(q.conditions, conds...)
	}
	return q
}

// Not add NOT conditions
func (q *Query) Not(query interface{}, args ...interface{}) *Query {
	if conds := q.buildConditions(query, args...); len(conds) > 0 {
		q.conditions = append(q.conditions, clause.Not(conds...))
	}
	return q
}

// Or add OR conditions
func (q *Query) Or(query interface{}, args ...interface{}) *Query {
	if conds := q.buildConditions(query, args...); len(conds) > 0 {
		q.conditions = append(q.conditions, clause.Or(clause.And(conds...)))
	}
	return q
}

func (q *Query) buildConditions(query interface{}, args ...interface{}) []clause.Expression {
	switch v := query.(type) {
	case clause.Expression:
		conds := []clause.Expression{v}
		for _, arg := range args {
			if expr, ok := arg.(clause.Expression); ok {
				conds = append(conds, expr)
			}
		}
		return conds
	case map[string]interface{}:
		conds := make([]clause.Expression, 0, len(v))
		for _, key := range sortedKeys(v) {
			field := q.lookUpField(key)
			if field == nil {
				continue
			}

			column := clause.Column{Table: clause.CurrentTable, Name: field.DBName}
			if values, ok := v[key].([]interface{}); ok {
				conds = append(conds, clause.IN{Column: column, Values: values})
			} else {
				conds = append(conds, clause.Eq{Column: column, Value: v[key]})
			}
		}
		return conds
	case string:
		if v == "" {
			return nil
		}
		return []clause.Expression{clause.Expr{SQL: v, Vars: args}}
	case nil:
		return nil
	}

	q.AddError(fmt.Errorf("unsupported condition %#v", query))
	return nil
}

func (q *Query) lookUpField(name string) *schema.Field {
	if q.Schema == nil {
		return nil
	}

	field := q.Schema.LookUpField(name)
	if field == nil {
		q.AddError(fmt.Errorf("%w: %v.%v", ErrUnknownField, q.Schema.Name, name))
	}
	return field
}

// Order specify order by field name, "Name DESC" or a clause.OrderByColumn
func (q *Query) Order(value interface{}) *Query {
	switch v := value.(type) {
	case clause.OrderByColumn:
		q.orders = append(q.orders, v)
	case string:
		parts := strings.Fields(v)
		if len(parts) == 0 {
			return q
		}

		if field := q.lookUpField(parts[0]); field != nil {
			q.orders = append(q.orders, clause.OrderByColumn{
				Column: clause.Column{Table: clause.CurrentTable, Name: field.DBName},
				Desc:   len(parts) > 1 && strings.EqualFold(parts[1], "desc"),
			})
		}
	default:
		q.AddError(fmt.Errorf("unsupported order %#v", value))
	}
	return q
}

// Require fails the fetch with a *NoRowsMatchedError when the query matches no rows
func (q *Query) Require(require ...bool) *Query {
	q.require = len(require) == 0 || require[0]
	return q
}

// EnsureUniqueField toggles the primary or unique field requirement for queries with joins
func (q *Query) EnsureUniqueField(ensure bool) *Query {
	q.ensureUniqueField = &ensure
	return q
}

// LeftJoin joins targets with LEFT JOIN
func (q *Query) LeftJoin(targets ...JoinTarget) *Query {
	return q.addJoin(clause.LeftJoin, targets)
}

// InnerJoin joins targets with INNER JOIN
func (q *Query) InnerJoin(targets ...JoinTarget) *Query {
	return q.addJoin(clause.InnerJoin, targets)
}

// Join joins targets with a plain JOIN
func (q *Query) Join(targets ...JoinTarget) *Query {
	return q.addJoin(clause.PlainJoin, targets)
}

func (q *Query) addJoin(joinType clause.JoinType, targets []JoinTarget) *Query {
	for _, target := range targets {
		if target == nil {
			continue
		}

		join := target.joinQuery(q.db)
		if err := q.attach(join); err != nil {
			q.AddError(err)
			continue
		}

		join.joinType = joinType
		q.joins = append(q.joins, join)
	}
	return q
}

func (q *Query) attach(join *Query) error {
	if join.parent != nil || join.state != stateUnresolved {
		return fmt.Errorf("%w: %v is already joined", ErrQueryConsumed, join)
	}

	for p := q; p != nil; p = p.parent {
		if p == join {
			return fmt.Errorf("%w: %v can't join itself", ErrQueryConsumed, join)
		}
	}

	if join.db == nil {
		join.db = q.db
	}
	join.parent = q
	return nil
}

// JoinType set the join type, used for both hops when the query is a junction
func (q *Query) JoinType(joinType clause.JoinType) *Query {
	q.joinType = joinType
	q.joinTypes = nil
	return q
}

// JoinTypes set the join type per hop of a junction, keyed by entity type name. The type
// of the parent side of a hop wins, hops with no entry are LEFT joined.
func (q *Query) JoinTypes(joinTypes map[string]clause.JoinType) *Query {
	q.joinTypes = joinTypes
	return q
}

// As set the key joined records are stored under, defaults to the entity type name
func (q *Query) As(as string) *Query {
	q.as = as
	return q
}

// On narrows the references used to join the query
func (q *Query) On(selectors ...FieldSelector) *Query {
	q.on = append(q.on, selectors...)
	return q
}

// Via joins the query through the junction target, in two hops: parent to junction and
// junction to query
func (q *Query) Via(target JoinTarget) *Query {
	if target == nil {
		q.via = nil
		return q
	}

	via := target.joinQuery(q.db)
	if via.parent != nil || via.state != stateUnresolved {
		q.AddError(fmt.Errorf("%w: %v is already joined", ErrQueryConsumed, via))
		return q
	}

	if via.db == nil {
		via.db = q.db
	}
	via.parent = q
	q.via = via
	return q
}

// First stores the first joined record instead of a list
func (q *Query) First(first ...bool) *Query {
	q.first = len(first) == 0 || first[0]
	return q
}

func (q *Query) String() string {
	if q.Schema == nil {
		return "<nil>"
	}
	return q.Schema.Name
}

// selected returns the selected fields, all fields when none are selected
func (q *Query) selected() []*schema.Field {
	if len(q.fields) > 0 {
		return q.fields
	}
	return q.Schema.Fields
}

func (q *Query) ensuresUniqueField() bool {
	if q.ensureUniqueField != nil {
		return *q.ensureUniqueField
	}
	return q.db == nil || !q.db.SkipUniqueFieldCheck
}

// uniqueField returns the first selected of the primary and unique fields
func (q *Query) uniqueField() *schema.Field {
	candidates := append([]*schema.Field{q.Schema.PrimaryField}, q.Schema.UniqueFields...)
	selected := q.selected()

	for _, candidate := range candidates {
		if candidate == nil {
			continue
		}
		for _, field := range selected {
			if field == candidate {
				return field
			}
		}
	}
	return nil
}

// columnAlias the alias a selected field is read back with
func (q *Query) columnAlias(field *schema.Field) string {
	return q.alias + "." + field.Name
}

func (q *Query) walk(fc func(*Query)) {
	fc(q)
	for _, join := range q.joins {
		join.walk(fc)
	}
}

func (q *Query) setState(state joinState) {
	q.walk(func(query *Query) {
		query.state = state
		if query.via != nil {
			query.via.state = state
		}
	})
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
