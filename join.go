package relations

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/relations/clause"
	"gorm.io/relations/schema"
)

// compiler compiles the joins of one root query
type compiler struct {
	db    *DB
	root  *Query
	index int
}

func newCompiler(db *DB, root *Query) *compiler {
	return &compiler{db: db, root: root}
}

// compile prepares every node of the join tree, resolves the join predicates and returns
// the statement selecting the whole tree
func (c *compiler) compile(ctx context.Context) (*Statement, error) {
	root := c.root
	if root.parent != nil {
		return nil, fmt.Errorf("%w: %v is joined to %v, fetch the root query", ErrQueryConsumed, root, root.parent)
	}

	if root.state != stateUnresolved {
		return nil, fmt.Errorf("%w: %v is %v", ErrQueryConsumed, root, root.state)
	}

	if err := c.collectErrors(root); err != nil {
		root.setState(stateFailed)
		return nil, err
	}

	root.alias = root.Schema.Table
	if err := c.prepare(ctx, root); err != nil {
		root.setState(stateFailed)
		return nil, err
	}

	if err := c.resolveJoins(ctx, root); err != nil {
		root.setState(stateFailed)
		return nil, err
	}
	root.setState(stateResolved)

	stmt := newStatement(c.db, ctx)
	stmt.buildSelect(root)
	if stmt.Error != nil {
		root.setState(stateFailed)
		return nil, stmt.Error
	}

	root.setState(stateCompiled)
	return stmt, nil
}

func (c *compiler) collectErrors(q *Query) (err error) {
	q.walk(func(query *Query) {
		if err == nil && query.Error != nil {
			err = query.Error
		}
		if err == nil && query.via != nil && query.via.Error != nil {
			err = query.via.Error
		}
		if err == nil && query.Schema == nil {
			err = fmt.Errorf("%w: %v", ErrMissingModel, query)
		}
		if err == nil && query.via != nil && query.via.Schema == nil {
			err = fmt.Errorf("%w: junction of %v", ErrMissingModel, query)
		}
	})
	return err
}

// prepare assigns aliases depth first and checks the unique field of every parent
func (c *compiler) prepare(ctx context.Context, parent *Query) error {
	if len(parent.joins) == 0 {
		return nil
	}

	parent.unique = parent.uniqueField()
	if parent.unique == nil && parent.ensuresUniqueField() {
		return noUniqueFieldError(parent, parent.joins[0])
	}

	namer := c.namer()
	for _, join := range parent.joins {
		c.index++
		join.index = c.index
		join.alias = namer.AliasName(join.Schema.Table, join.index)

		if join.as == "" {
			join.as = join.Schema.Name
		}

		if join.unique == nil {
			join.unique = join.uniqueField()
		}

		for _, field := range parent.selected() {
			if field.Name == join.as {
				c.db.Logger.Warn(ctx, "%v: `%v` joined as `%v` replaces the selected field", parent, join, join.as)
				break
			}
		}

		if via := join.via; via != nil {
			c.index++
			via.index = c.index
			via.alias = namer.AliasName(via.Schema.Table, via.index)
		}

		if err := c.prepare(ctx, join); err != nil {
			return err
		}
	}

	return nil
}

func (c *compiler) namer() schema.Namer {
	if c.root.Schema != nil && c.root.Schema.Namer() != nil {
		return c.root.Schema.Namer()
	}
	return c.db.NamingStrategy
}

// resolveJoins resolves the predicates of the joins of parent, siblings concurrently
func (c *compiler) resolveJoins(ctx context.Context, parent *Query) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, join := range parent.joins {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			clauses, err := c.resolveJoin(parent, join)
			if err != nil {
				return err
			}
			join.clauses = clauses

			return c.resolveJoins(ctx, join)
		})
	}

	return g.Wait()
}

// resolveJoin returns the JOIN clauses placing join under parent, two when joined
// through a junction
func (c *compiler) resolveJoin(parent, join *Query) ([]clause.Join, error) {
	via := join.via
	if via == nil {
		on, err := resolveJoinReferences(parent, join, join.on)
		if err != nil {
			return nil, err
		}
		return []clause.Join{joinClause(join, join.joinType, on)}, nil
	}

	firstOn, secondOn := via.on, via.on
	if parent.Schema.Name == join.Schema.Name && len(via.on) == 0 {
		// a self referencing junction can't be told apart by name, its references to the
		// entity type are used in declaration order
		if candidates := resolveQueryReferences(via)[parent.Schema.Name].Fields(); len(candidates) > 0 {
			firstOn = []FieldSelector{FieldRef(candidates[0])}
			secondOn = nil
			if len(candidates) > 1 {
				secondOn = []FieldSelector{FieldRef(candidates[1])}
			}
		}
	}

	first, err := resolveJoinReferences(parent, via, firstOn)
	if err != nil {
		return nil, err
	}

	second, err := resolveJoinReferences(via, join, secondOn)
	if err != nil {
		return nil, err
	}

	return []clause.Join{
		joinClause(via, hopJoinType(via, parent, via), first),
		joinClause(join, hopJoinType(via, via, join), second),
	}, nil
}

// hopJoinType the join type of the junction hop from -> to
func hopJoinType(via, from, to *Query) clause.JoinType {
	if via.joinTypes != nil {
		if joinType, ok := via.joinTypes[from.Schema.Name]; ok {
			return joinType
		}
		if joinType, ok := via.joinTypes[to.Schema.Name]; ok {
			return joinType
		}
		return clause.LeftJoin
	}
	return via.joinType
}

func joinClause(q *Query, joinType clause.JoinType, on []clause.Expression) clause.Join {
	return clause.Join{
		Type:  joinType,
		Table: clause.Table{Name: q.Schema.Table, Alias: q.alias},
		ON:    clause.Where{Exprs: on},
	}
}
