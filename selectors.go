package relations

import (
	"gorm.io/relations/schema"
)

// JoinTarget what a query joins, either a *Query or a Type
type JoinTarget interface {
	joinQuery(db *DB) *Query
}

type typeRef struct {
	schema *schema.Schema
}

// Type joins a fresh query of the entity type s
func Type(s *schema.Schema) JoinTarget {
	return typeRef{schema: s}
}

func (t typeRef) joinQuery(db *DB) *Query {
	return db.Model(t.schema)
}

func (q *Query) joinQuery(*DB) *Query {
	return q
}

// FieldSelector names a field of either side of a join, one of Name, FieldRef or PerType
type FieldSelector interface {
	isFieldSelector()
}

// Name selects a field by name
type Name string

type fieldRef struct {
	field *schema.Field
}

// FieldRef selects field, a field of the other side is looked up by name
func FieldRef(field *schema.Field) FieldSelector {
	return fieldRef{field: field}
}

// PerType selects a field per entity type name, the entry for the parent side wins
type PerType map[string]FieldSelector

func (Name) isFieldSelector()     {}
func (fieldRef) isFieldSelector() {}
func (PerType) isFieldSelector()  {}
