package relations

import (
	"errors"
	"fmt"

	"gorm.io/relations/logger"
	"gorm.io/relations/schema"
)

var (
	// ErrNoReference neither entity type of a join declares a reference to the other
	ErrNoReference = errors.New("there are no references")
	// ErrNoUniqueField a query with joins selects none of its primary or unique fields
	ErrNoUniqueField = errors.New("no primary or unique fields selected")
	// ErrNoRowsMatched a required query or join matched no rows
	ErrNoRowsMatched = logger.ErrNoRowsMatched
	// ErrUnknownField a field name or selector matches no field
	ErrUnknownField = errors.New("unknown field")
	// ErrQueryConsumed a query was compiled twice or attached to two parents
	ErrQueryConsumed = errors.New("query already consumed")
	// ErrInvalidValue a column value can't be converted to its field's data type
	ErrInvalidValue = schema.ErrInvalidValue
	// ErrInvalidDB invalid db
	ErrInvalidDB = errors.New("invalid db")
	// ErrMissingModel a query has no entity type
	ErrMissingModel = errors.New("model required")
	// ErrUndefinedTable the database has no table of a joined entity type
	ErrUndefinedTable = errors.New("undefined table")
	// ErrUndefinedColumn the database table has no column of a selected field
	ErrUndefinedColumn = errors.New("undefined column")
)

// NoRowsMatchedError returned by Fetch when Query is required and matched no rows
type NoRowsMatchedError struct {
	Query *Query
}

func (e *NoRowsMatchedError) Error() string {
	if e.Query == nil || e.Query.Schema == nil {
		return ErrNoRowsMatched.Error()
	}
	return fmt.Sprintf("%v: %v", e.Query.Schema.Name, ErrNoRowsMatched)
}

func (e *NoRowsMatchedError) Unwrap() error {
	return ErrNoRowsMatched
}

func noReferenceError(from, to *Query) error {
	return fmt.Errorf("%v: %w to `%v`", from.Schema.Name, ErrNoReference, to.Schema.Name)
}

func noUniqueFieldError(parent, join *Query) error {
	return fmt.Errorf("%v: cannot join `%v` with %w", parent.Schema.Name, join.Schema.Name, ErrNoUniqueField)
}
