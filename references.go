package relations

import (
	"fmt"

	"gorm.io/relations/clause"
	"gorm.io/relations/schema"
)

// resolveQueryReferences returns the references of the query's entity type keyed by
// target entity type name, deferred references included
func resolveQueryReferences(q *Query) map[string]*schema.FieldSet {
	return q.Schema.Registry.Resolve()
}

// joinReferences the references between both sides of one join
type joinReferences struct {
	from, to *Query
	// forward from references to, otherwise to references from
	forward bool
	// referenced the side the emitted references point at
	referenced *schema.Schema
	// candidates references of both directions keyed by field name
	candidates *schema.FieldSet
	// byReferenced referencing fields keyed by the name of the field they reference
	byReferenced map[string][]*schema.Field
}

func newJoinReferences(from, to *Query) (*joinReferences, error) {
	fromRefs := resolveQueryReferences(from)
	toRefs := resolveQueryReferences(to)

	fromTo, toFrom := fromRefs[to.Schema.Name], toRefs[from.Schema.Name]
	if fromTo.Len() == 0 && toFrom.Len() == 0 {
		return nil, noReferenceError(from, to)
	}

	refs := &joinReferences{
		from:         from,
		to:           to,
		forward:      fromTo.Len() > 0,
		candidates:   schema.NewFieldSet(),
		byReferenced: map[string][]*schema.Field{},
	}

	if refs.forward {
		refs.referenced = to.Schema
	} else {
		refs.referenced = from.Schema
	}

	if fromTo != nil {
		refs.candidates.Merge(fromTo)
	}
	if toFrom != nil {
		refs.candidates.Merge(toFrom)
	}

	for _, field := range refs.candidates.Fields() {
		for _, target := range field.Targets() {
			if refs.targets(target) {
				refs.byReferenced[target.Name] = append(refs.byReferenced[target.Name], field)
			}
		}
	}

	return refs, nil
}

func (refs *joinReferences) targets(field *schema.Field) bool {
	return field != nil && field.Schema != nil && field.Schema.Name == refs.referenced.Name
}

// narrow returns the candidates selected by on, every candidate when on is empty
func (refs *joinReferences) narrow(on []FieldSelector) ([]*schema.Field, error) {
	selectors := make([]FieldSelector, 0, len(on))
	for _, selector := range on {
		if perType, ok := selector.(PerType); ok {
			if s, ok := perType[refs.from.Schema.Name]; ok {
				selectors = append(selectors, s)
			} else if s, ok := perType[refs.to.Schema.Name]; ok {
				selectors = append(selectors, s)
			}
			continue
		}
		selectors = append(selectors, selector)
	}

	if len(selectors) == 0 {
		return refs.candidates.Fields(), nil
	}

	var fields []*schema.Field
	for _, selector := range selectors {
		var name string

		switch s := selector.(type) {
		case fieldRef:
			if s.field == nil {
				return nil, fmt.Errorf("%w: %v: nil field in join with `%v`", ErrUnknownField, refs.from, refs.to)
			}

			if s.field.Schema == refs.from.Schema {
				if field := refs.candidates.Get(s.field.Name); field != nil {
					fields = append(fields, field)
				} else if referencing, ok := refs.byReferenced[s.field.Name]; ok {
					fields = append(fields, referencing...)
				} else {
					return nil, fmt.Errorf("%w: %v: `%v` is not used in references to `%v`", ErrUnknownField, refs.from, s.field, refs.to)
				}
				continue
			}
			name = s.field.Name
		case Name:
			name = string(s)
		case PerType:
			return nil, fmt.Errorf("%w: %v: nested per type selector in join with `%v`", ErrUnknownField, refs.from, refs.to)
		}

		if referencing, ok := refs.byReferenced[name]; ok {
			fields = append(fields, referencing...)
		} else if field := refs.candidates.Get(name); field != nil {
			fields = append(fields, field)
		} else {
			return nil, fmt.Errorf("%w: %v: `%v` is not used in references to `%v`", ErrUnknownField, refs.from, name, refs.to)
		}
	}

	return fields, nil
}

// predicate returns one column equality per reference to the referenced side, keyed by
// the column of the joined side, a repeated column keeps its last pair
func (refs *joinReferences) predicate(fields []*schema.Field) []clause.Expression {
	var (
		keys  []string
		pairs = map[string]clause.Eq{}
	)

	for _, field := range fields {
		for _, target := range field.Targets() {
			if !refs.targets(target) {
				continue
			}

			var eq clause.Eq
			if refs.forward {
				eq = clause.Eq{
					Column: clause.Column{Table: refs.to.alias, Name: target.DBName},
					Value:  clause.Column{Table: refs.from.alias, Name: field.DBName},
				}
			} else {
				eq = clause.Eq{
					Column: clause.Column{Table: refs.to.alias, Name: field.DBName},
					Value:  clause.Column{Table: refs.from.alias, Name: target.DBName},
				}
			}

			key := eq.Column.(clause.Column).Name
			if _, ok := pairs[key]; !ok {
				keys = append(keys, key)
			}
			pairs[key] = eq
		}
	}

	if len(keys) == 0 {
		return []clause.Expression{clause.Expr{SQL: "1 <> 1"}}
	}

	exprs := make([]clause.Expression, 0, len(keys))
	for _, key := range keys {
		exprs = append(exprs, pairs[key])
	}
	return exprs
}

// resolveJoinReferences returns the join predicate of to joined to from
func resolveJoinReferences(from, to *Query, on []FieldSelector) ([]clause.Expression, error) {
	refs, err := newJoinReferences(from, to)
	if err != nil {
		return nil, err
	}

	fields, err := refs.narrow(on)
	if err != nil {
		return nil, err
	}

	return refs.predicate(fields), nil
}
