package relations

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/relations/logger"
	"gorm.io/relations/utils"
)

// Record a fetched entity keyed by field name, joined records are stored under the join's
// key as a Record (first mode), a []Record or nil when nothing matched
type Record map[string]interface{}

// Row one row of a fetch keyed by column alias
type Row map[string]interface{}

// parseContext the parse state of one fetch, discarded once rows are assembled
type parseContext struct {
	ctx    context.Context
	logger logger.Interface
	nodes  map[*Query]*parsedNode
}

// parsedNode instances of one query, in order of first appearance
type parsedNode struct {
	instances map[string]*instance
	order     []*instance
	matched   int
}

type instance struct {
	record Record
	// attached joins that stored data on the record
	attached map[*Query]bool
	// members unique keys of the records a join already stored on the record
	members map[*Query]map[string]bool
}

func newParseContext(ctx context.Context, l logger.Interface) *parseContext {
	return &parseContext{ctx: ctx, logger: l, nodes: map[*Query]*parsedNode{}}
}

func (pc *parseContext) node(q *Query) *parsedNode {
	node, ok := pc.nodes[q]
	if !ok {
		node = &parsedNode{instances: map[string]*instance{}}
		pc.nodes[q] = node
	}
	return node
}

// parseRows assembles rows into the distinct records of q, in order of first appearance
func (pc *parseContext) parseRows(q *Query, rows []Row) ([]Record, error) {
	for _, row := range rows {
		if _, _, err := pc.parseRow(q, row, true); err != nil {
			return nil, err
		}
	}

	node := pc.node(q)
	records := make([]Record, 0, len(node.order))
	for _, inst := range node.order {
		records = append(records, inst.record)
	}
	return records, nil
}

// parseRow parses the fields of q and of its joins from row. A joined record whose
// fields are all null is empty and returns no instance. Records with the same unique
// value are parsed into one instance.
func (pc *parseContext) parseRow(q *Query, row Row, root bool) (inst *instance, key string, err error) {
	record, empty, err := q.parseFields(row)
	if err != nil {
		return nil, "", err
	}

	if empty && !root {
		return nil, "", nil
	}

	node := pc.node(q)
	node.matched++

	if q.unique != nil {
		if value := record[q.unique.Name]; value != nil {
			key = utils.ToStringKey(value)
			inst = node.instances[key]
		} else if len(q.joins) > 0 {
			pc.logger.Warn(pc.ctx, "%v: null %v, joined records of this row are not merged", q, q.unique.Name)
		}
	}

	if inst == nil {
		inst = &instance{record: record, attached: map[*Query]bool{}, members: map[*Query]map[string]bool{}}
		if key != "" {
			node.instances[key] = inst
		}
		node.order = append(node.order, inst)
	}

	for _, join := range q.joins {
		child, childKey, err := pc.parseRow(join, row, false)
		if err != nil {
			return nil, "", err
		}
		inst.attach(join, child, childKey)
	}

	return inst, key, nil
}

// attach stores the contribution of join to the instance
func (inst *instance) attach(join *Query, child *instance, childKey string) {
	as := join.as

	switch {
	case child == nil:
		if !inst.attached[join] {
			inst.record[as] = nil
		}
	case join.first:
		if !inst.attached[join] {
			inst.record[as] = child.record
			inst.attached[join] = true
		}
	default:
		if childKey != "" {
			members, ok := inst.members[join]
			if !ok {
				members = map[string]bool{}
				inst.members[join] = members
			}
			if members[childKey] {
				return
			}
			members[childKey] = true
		}

		records, _ := inst.record[as].([]Record)
		inst.record[as] = append(records, child.record)
		inst.attached[join] = true
	}
}

// parseFields reads the selected fields of q from row, empty when all are null
func (q *Query) parseFields(row Row) (Record, bool, error) {
	var (
		fields = q.selected()
		record = make(Record, len(fields)+len(q.joins))
		empty  = true
	)

	for _, field := range fields {
		value, err := field.Coerce(row[q.columnAlias(field)])
		if err != nil {
			return nil, false, fmt.Errorf("%v: %w", q, err)
		}

		if value != nil {
			empty = false
		}
		record[field.Name] = value
	}

	return record, empty, nil
}

// checkRequire returns the error of the first required query that matched no rows,
// joins before their parent
func (pc *parseContext) checkRequire(q *Query) error {
	for _, join := range q.joins {
		if err := pc.checkRequire(join); err != nil {
			return err
		}
	}

	if q.require && pc.node(q).matched == 0 {
		return &NoRowsMatchedError{Query: q}
	}
	return nil
}

// scanRows reads rows into Row values keyed by column name
func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for idx := range values {
			pointers[idx] = &values[idx]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for idx, column := range columns {
			row[column] = values[idx]
		}
		results = append(results, row)
	}

	return results, rows.Err()
}
