package relations

import (
	"context"
	"strings"
	"time"

	"gorm.io/relations/logger"
)

// Fetch compiles the query with its joins, runs it and assembles the rows into records
func (q *Query) Fetch(ctx context.Context) (records []Record, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	db := q.db
	if db == nil {
		return nil, ErrInvalidDB
	}

	var (
		begin = time.Now()
		stmt  *Statement
		count int64 = -1
	)

	defer func() {
		if stmt == nil {
			return
		}

		db.Logger.Trace(ctx, begin, func() (string, int64) {
			sql, vars := stmt.SQL.String(), stmt.Vars
			if filter, ok := db.Logger.(logger.ParamsFilter); ok {
				sql, vars = filter.ParamsFilter(ctx, sql, vars...)
			}
			return db.Dialector.Explain(sql, vars...), count
		}, err)
	}()

	if stmt, err = newCompiler(db, q).compile(ctx); err != nil {
		return nil, err
	}

	if db.DryRun {
		return nil, nil
	}

	if db.ConnPool == nil {
		q.setState(stateFailed)
		return nil, ErrInvalidDB
	}

	rows, err := db.ConnPool.QueryContext(ctx, stmt.SQL.String(), stmt.Vars...)
	if err != nil {
		q.setState(stateFailed)
		return nil, db.translateError(err)
	}
	defer rows.Close()

	physical, err := scanRows(rows)
	if err != nil {
		q.setState(stateFailed)
		return nil, db.translateError(err)
	}
	count = int64(len(physical))

	pc := newParseContext(ctx, db.Logger)
	if records, err = pc.parseRows(q, physical); err != nil {
		q.setState(stateFailed)
		return nil, err
	}

	if err = pc.checkRequire(q); err != nil {
		q.setState(stateFailed)
		return nil, err
	}

	q.setState(stateParsed)
	return records, nil
}

// ToSQL compiles the query with its joins without running it
func (q *Query) ToSQL(ctx context.Context) (string, []interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if q.db == nil {
		return "", nil, ErrInvalidDB
	}

	stmt, err := newCompiler(q.db, q).compile(ctx)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSpace(stmt.SQL.String()), stmt.Vars, nil
}
