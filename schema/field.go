package schema

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"gorm.io/relations/utils"
)

type DataType string

const (
	Bool   DataType = "bool"
	Int    DataType = "int"
	Uint   DataType = "uint"
	Float  DataType = "float"
	String DataType = "string"
	Time   DataType = "time"
	Bytes  DataType = "bytes"
)

// Field a field of an entity type, owned by exactly one Schema
type Field struct {
	Name       string
	DBName     string
	DataType   DataType
	PrimaryKey bool
	Unique     bool
	Schema     *Schema
	// References fields of other entity types this field points at, nil if none
	References References
}

// References is either Direct or Deferred
type References interface {
	isReferences()
}

// Direct references resolved at declaration time
type Direct []*Field

// Deferred references resolved when a join is compiled, used to reference entity
// types that are declared later (or reference each other)
type Deferred func() []*Field

func (Direct) isReferences()   {}
func (Deferred) isReferences() {}

// Refs returns direct references to fields
func Refs(fields ...*Field) Direct {
	return Direct(fields)
}

// Lazy returns references resolved by calling fc
func Lazy(fc func() []*Field) Deferred {
	return Deferred(fc)
}

// Targets returns the fields this field references, calling deferred references
func (field *Field) Targets() []*Field {
	switch refs := field.References.(type) {
	case Direct:
		return refs
	case Deferred:
		if refs == nil {
			return nil
		}
		return refs()
	}
	return nil
}

// HasReferences whether the field declares references
func (field *Field) HasReferences() bool {
	switch refs := field.References.(type) {
	case Direct:
		return len(refs) > 0
	case Deferred:
		return refs != nil
	}
	return false
}

func (field *Field) String() string {
	if field.Schema != nil {
		return field.Schema.Name + "." + field.Name
	}
	return field.Name
}

func (field *Field) clone(schema *Schema) *Field {
	f := *field
	f.Schema = schema
	return &f
}

// Coerce converts a value returned by the database driver to the field's data type,
// nil stays nil
func (field *Field) Coerce(value interface{}) (interface{}, error) {
	result, err := field.coerce(value)
	if err != nil && !errors.Is(err, ErrInvalidValue) {
		return nil, fmt.Errorf("%w: %#v for field %v: %v", ErrInvalidValue, value, field, err)
	}
	return result, err
}

func (field *Field) coerce(value interface{}) (interface{}, error) {
	if valuer, ok := value.(driver.Valuer); ok {
		v, err := valuer.Value()
		if err != nil {
			return nil, err
		}
		value = v
	}

	if value == nil {
		return nil, nil
	}

	switch field.DataType {
	case Bool:
		switch data := value.(type) {
		case bool:
			return data, nil
		case int64:
			return data != 0, nil
		case string:
			return strconv.ParseBool(data)
		case []byte:
			return strconv.ParseBool(string(data))
		}
	case Int:
		switch data := value.(type) {
		case int64:
			return data, nil
		case int, int8, int16, int32, uint8, uint16, uint32:
			return strconv.ParseInt(utils.ToString(data), 10, 64)
		case float64:
			return int64(data), nil
		case string:
			return strconv.ParseInt(data, 10, 64)
		case []byte:
			return strconv.ParseInt(string(data), 10, 64)
		}
	case Uint:
		switch data := value.(type) {
		case uint64:
			return data, nil
		case int64:
			if data >= 0 {
				return uint64(data), nil
			}
		case uint, uint8, uint16, uint32, int, int8, int16, int32:
			return strconv.ParseUint(utils.ToString(data), 10, 64)
		case string:
			return strconv.ParseUint(data, 10, 64)
		case []byte:
			return strconv.ParseUint(string(data), 10, 64)
		}
	case Float:
		switch data := value.(type) {
		case float64:
			return data, nil
		case float32:
			return float64(data), nil
		case int64:
			return float64(data), nil
		case string:
			return strconv.ParseFloat(data, 64)
		case []byte:
			return strconv.ParseFloat(string(data), 64)
		}
	case String:
		switch data := value.(type) {
		case string:
			return data, nil
		case []byte:
			return string(data), nil
		case time.Time:
			return data.Format(time.RFC3339Nano), nil
		default:
			return utils.ToString(data), nil
		}
	case Time:
		switch data := value.(type) {
		case time.Time:
			return data, nil
		case string:
			if t, err := now.Parse(strings.TrimSpace(data)); err == nil {
				return t, nil
			} else {
				return nil, fmt.Errorf("%w: failed to parse %q as time for field %v: %v", ErrInvalidValue, data, field, err)
			}
		case []byte:
			if t, err := now.Parse(strings.TrimSpace(string(data))); err == nil {
				return t, nil
			} else {
				return nil, fmt.Errorf("%w: failed to parse %q as time for field %v: %v", ErrInvalidValue, data, field, err)
			}
		case int64:
			return time.Unix(data, 0), nil
		}
	case Bytes:
		switch data := value.(type) {
		case []byte:
			return append([]byte(nil), data...), nil
		case string:
			return []byte(data), nil
		}
	default:
		return value, nil
	}

	return nil, fmt.Errorf("%w: unsupported value %#v for %v field %v", ErrInvalidValue, value, field.DataType, field)
}
