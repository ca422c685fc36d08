package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidField invalid field declaration
	ErrInvalidField = errors.New("invalid field")
	// ErrDuplicateField a field with the same name already exists
	ErrDuplicateField = errors.New("duplicate field")
	// ErrInvalidValue value can't be converted to the field's data type
	ErrInvalidValue = errors.New("invalid value")
)

// Schema entity type configuration: its table, fields and the references its fields
// declare. A Schema is created when the entity type is defined and is not shared with
// types derived from it, see Extend.
type Schema struct {
	Name           string
	Table          string
	PrimaryField   *Field
	PrimaryFields  []*Field
	UniqueFields   []*Field
	Fields         []*Field
	FieldsByName   map[string]*Field
	FieldsByDBName map[string]*Field
	Registry       *Registry
	namer          Namer
}

func (schema Schema) String() string {
	return schema.Name
}

// New creates an entity type named name with fields
func New(name string, namer Namer, fields ...*Field) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: entity type name required", ErrInvalidField)
	}

	if namer == nil {
		namer = NamingStrategy{}
	}

	schema := &Schema{
		Name:           name,
		Table:          namer.TableName(name),
		FieldsByName:   map[string]*Field{},
		FieldsByDBName: map[string]*Field{},
		Registry:       NewRegistry(),
		namer:          namer,
	}

	for _, field := range fields {
		if err := schema.AddField(field); err != nil {
			return nil, err
		}
	}

	return schema, nil
}

// MustNew like New but panics on error, for package level declarations
func MustNew(name string, namer Namer, fields ...*Field) *Schema {
	schema, err := New(name, namer, fields...)
	if err != nil {
		panic(err)
	}
	return schema
}

// AddField adds field to the entity type and registers its references
func (schema *Schema) AddField(field *Field) error {
	if field == nil || field.Name == "" {
		return fmt.Errorf("%w: %v: field name required", ErrInvalidField, schema.Name)
	}

	if field.Schema != nil && field.Schema != schema {
		return fmt.Errorf("%w: %v already belongs to %v", ErrInvalidField, field.Name, field.Schema.Name)
	}

	if _, ok := schema.FieldsByName[field.Name]; ok {
		return fmt.Errorf("%w: %v.%v", ErrDuplicateField, schema.Name, field.Name)
	}

	if field.DBName == "" {
		field.DBName = schema.namer.ColumnName(schema.Table, field.Name)
	}

	if _, ok := schema.FieldsByDBName[field.DBName]; ok {
		return fmt.Errorf("%w: %v column %v", ErrDuplicateField, schema.Name, field.DBName)
	}

	if refs, ok := field.References.(Direct); ok {
		for _, target := range refs {
			if target == nil || target.Schema == nil {
				return fmt.Errorf("%w: %v.%v references a field that belongs to no entity type", ErrInvalidField, schema.Name, field.Name)
			}
		}
	}

	field.Schema = schema
	schema.Fields = append(schema.Fields, field)
	schema.FieldsByName[field.Name] = field
	schema.FieldsByDBName[field.DBName] = field

	if field.PrimaryKey {
		if schema.PrimaryField == nil {
			schema.PrimaryField = field
		}
		schema.PrimaryFields = append(schema.PrimaryFields, field)
	}

	if field.Unique {
		schema.UniqueFields = append(schema.UniqueFields, field)
	}

	if field.HasReferences() {
		schema.Registry.Add(field)
	}

	return nil
}

// RemoveField removes the field named name together with its references
func (schema *Schema) RemoveField(name string) *Field {
	field, ok := schema.FieldsByName[name]
	if !ok {
		return nil
	}

	delete(schema.FieldsByName, field.Name)
	delete(schema.FieldsByDBName, field.DBName)
	schema.Fields = removeField(schema.Fields, field)
	schema.PrimaryFields = removeField(schema.PrimaryFields, field)
	schema.UniqueFields = removeField(schema.UniqueFields, field)

	if schema.PrimaryField == field {
		schema.PrimaryField = nil
		if len(schema.PrimaryFields) > 0 {
			schema.PrimaryField = schema.PrimaryFields[0]
		}
	}

	schema.Registry.Remove(field)
	return field
}

func removeField(fields []*Field, field *Field) []*Field {
	for idx, f := range fields {
		if f == field {
			return append(fields[:idx:idx], fields[idx+1:]...)
		}
	}
	return fields
}

// Extend derives a new entity type from schema, fields with the same name as an
// inherited field replace it. The derived type gets its own copy of every inherited
// field and of the reference registry.
func (schema *Schema) Extend(name string, fields ...*Field) (*Schema, error) {
	derived, err := New(name, schema.namer)
	if err != nil {
		return nil, err
	}
	derived.Table = schema.Table

	for _, field := range schema.Fields {
		f := field.clone(derived)
		derived.Fields = append(derived.Fields, f)
		derived.FieldsByName[f.Name] = f
		derived.FieldsByDBName[f.DBName] = f
		if f.PrimaryKey {
			if derived.PrimaryField == nil {
				derived.PrimaryField = f
			}
			derived.PrimaryFields = append(derived.PrimaryFields, f)
		}
		if f.Unique {
			derived.UniqueFields = append(derived.UniqueFields, f)
		}
	}

	derived.Registry = schema.Registry.Clone()
	derived.Registry.rebind(derived)

	for _, field := range fields {
		if field != nil {
			derived.RemoveField(field.Name)
		}
		if err := derived.AddField(field); err != nil {
			return nil, err
		}
	}

	return derived, nil
}

// LookUpField finds a field by name or column name
func (schema Schema) LookUpField(name string) *Field {
	if field, ok := schema.FieldsByName[name]; ok {
		return field
	}
	if field, ok := schema.FieldsByDBName[name]; ok {
		return field
	}
	return nil
}

// Namer returns the naming strategy the entity type was created with
func (schema Schema) Namer() Namer {
	return schema.namer
}
