package catalog

import (
	"fmt"
	"strings"

	"gorm.io/relations"
	"gorm.io/relations/clause"
)

// QueryDefinition a query tree, joins and the via junction are queries themselves
//
//	model: User
//	fields: [ID, Name]
//	where: {Name: Alice}
//	order: [ID, Name DESC]
//	joins:
//	  - model: Group
//	    type: inner
//	    via: {model: GroupMembership, types: {User: inner}}
type QueryDefinition struct {
	Model             string                 `yaml:"model"`
	Fields            []string               `yaml:"fields"`
	Where             map[string]interface{} `yaml:"where"`
	Order             []string               `yaml:"order"`
	Require           bool                   `yaml:"require"`
	EnsureUniqueField *bool                  `yaml:"ensure_unique_field"`

	Type      string             `yaml:"type"`
	Types     map[string]string  `yaml:"types"`
	As        string             `yaml:"as"`
	On        []string           `yaml:"on"`
	OnPerType map[string]string  `yaml:"on_per_type"`
	First     bool               `yaml:"first"`
	Via       *QueryDefinition   `yaml:"via"`
	Joins     []*QueryDefinition `yaml:"joins"`
}

// Query builds the query named name, every call returns a fresh query
func (c *Catalog) Query(db *relations.DB, name string) (*relations.Query, error) {
	def, ok := c.Queries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownQuery, name)
	}

	q, err := c.Build(db, def)
	if err != nil {
		return nil, fmt.Errorf("query %v: %w", name, err)
	}
	return q, nil
}

// Build builds a query from def
func (c *Catalog) Build(db *relations.DB, def *QueryDefinition) (*relations.Query, error) {
	s, ok := c.schemas[def.Model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, def.Model)
	}

	q := db.Model(s)

	if len(def.Fields) > 0 {
		q.Fields(def.Fields...)
	}
	if len(def.Where) > 0 {
		q.Where(def.Where)
	}
	for _, order := range def.Order {
		q.Order(order)
	}
	if def.Require {
		q.Require()
	}
	if def.EnsureUniqueField != nil {
		q.EnsureUniqueField(*def.EnsureUniqueField)
	}
	if def.As != "" {
		q.As(def.As)
	}
	if def.First {
		q.First()
	}

	if selectors := def.selectors(); len(selectors) > 0 {
		q.On(selectors...)
	}

	if def.Via != nil {
		via, err := c.Build(db, def.Via)
		if err != nil {
			return nil, err
		}

		if def.Via.Type != "" {
			joinType, err := parseJoinType(def.Via.Type)
			if err != nil {
				return nil, err
			}
			via.JoinType(joinType)
		}

		if len(def.Via.Types) > 0 {
			joinTypes := make(map[string]clause.JoinType, len(def.Via.Types))
			for name, typ := range def.Via.Types {
				joinType, err := parseJoinType(typ)
				if err != nil {
					return nil, err
				}
				joinTypes[name] = joinType
			}
			via.JoinTypes(joinTypes)
		}

		q.Via(via)
	}

	for _, joinDef := range def.Joins {
		join, err := c.Build(db, joinDef)
		if err != nil {
			return nil, err
		}

		joinType, err := parseJoinType(joinDef.Type)
		if err != nil {
			return nil, err
		}

		switch joinType {
		case clause.InnerJoin:
			q.InnerJoin(join)
		case clause.PlainJoin:
			q.Join(join)
		default:
			q.LeftJoin(join)
		}
	}

	return q, nil
}

func (def *QueryDefinition) selectors() []relations.FieldSelector {
	selectors := make([]relations.FieldSelector, 0, len(def.On)+1)
	for _, name := range def.On {
		selectors = append(selectors, relations.Name(name))
	}

	if len(def.OnPerType) > 0 {
		perType := make(relations.PerType, len(def.OnPerType))
		for typeName, name := range def.OnPerType {
			perType[typeName] = relations.Name(name)
		}
		selectors = append(selectors, perType)
	}
	return selectors
}

func parseJoinType(name string) (clause.JoinType, error) {
	switch strings.ToLower(name) {
	case "", "left":
		return clause.LeftJoin, nil
	case "inner":
		return clause.InnerJoin, nil
	case "join", "plain":
		return clause.PlainJoin, nil
	}
	return "", fmt.Errorf("%w: join type %q", ErrInvalidDefinition, name)
}
