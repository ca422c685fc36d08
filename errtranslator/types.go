// Package errtranslator translates driver errors into the relations errors a caller can
// match with errors.Is, the driver error stays reachable with errors.As.
package errtranslator

import (
	"fmt"

	"gorm.io/relations"
)

type ErrTranslator interface {
	Translate(err error) error
}

// ErrUndefined a driver error about a table or column the database doesn't have
type ErrUndefined struct {
	Kind    error
	Code    interface{}
	Message string
	Err     error
}

func (e *ErrUndefined) Error() string {
	return fmt.Sprintf("%v, code: %v, message: %s", e.Kind, e.Code, e.Message)
}

func (e *ErrUndefined) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func undefinedTable(code interface{}, message string, err error) error {
	return &ErrUndefined{Kind: relations.ErrUndefinedTable, Code: code, Message: message, Err: err}
}

func undefinedColumn(code interface{}, message string, err error) error {
	return &ErrUndefined{Kind: relations.ErrUndefinedColumn, Code: code, Message: message, Err: err}
}
