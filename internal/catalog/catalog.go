// Package catalog loads entity types and named queries from YAML.
//
//	entities:
//	  - name: User
//	    fields:
//	      - {name: ID, type: int, primary: true}
//	      - {name: CreatorID, type: int, references: [User.ID]}
//	queries:
//	  creators:
//	    model: User
//	    joins:
//	      - {model: User, as: Creator, first: true}
//
// References are resolved when a join is compiled, entity types may reference types
// declared after them.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/relations/schema"
)

var (
	// ErrUnknownEntity an entity type name matches no declared entity type
	ErrUnknownEntity = errors.New("unknown entity type")
	// ErrUnknownQuery a query name matches no declared query
	ErrUnknownQuery = errors.New("unknown query")
	// ErrInvalidDefinition a definition can't be turned into an entity type or query
	ErrInvalidDefinition = errors.New("invalid definition")
)

// Catalog entity types and queries declared in one file
type Catalog struct {
	Entities []*EntityDefinition        `yaml:"entities"`
	Queries  map[string]*QueryDefinition `yaml:"queries"`

	schemas map[string]*schema.Schema
}

// EntityDefinition an entity type, the table defaults to the naming strategy's
type EntityDefinition struct {
	Name   string             `yaml:"name"`
	Table  string             `yaml:"table"`
	Fields []*FieldDefinition `yaml:"fields"`
}

// FieldDefinition a field, references are "Type.Field" names
type FieldDefinition struct {
	Name       string   `yaml:"name"`
	Column     string   `yaml:"column"`
	Type       string   `yaml:"type"`
	Primary    bool     `yaml:"primary"`
	Unique     bool     `yaml:"unique"`
	References []string `yaml:"references"`
}

// Load reads and parses the catalog file at path
func Load(path string, namer schema.Namer) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	c, err := Parse(data, namer)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	return c, nil
}

// Parse parses a catalog and declares its entity types
func Parse(data []byte, namer schema.Namer) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	if c.Queries == nil {
		c.Queries = map[string]*QueryDefinition{}
	}

	if err := c.declare(namer); err != nil {
		return nil, err
	}
	return &c, nil
}

// Schema returns the entity type named name
func (c *Catalog) Schema(name string) (*schema.Schema, bool) {
	s, ok := c.schemas[name]
	return s, ok
}

func (c *Catalog) declare(namer schema.Namer) error {
	c.schemas = make(map[string]*schema.Schema, len(c.Entities))

	for _, entity := range c.Entities {
		if _, ok := c.schemas[entity.Name]; ok {
			return fmt.Errorf("%w: entity type %v declared twice", ErrInvalidDefinition, entity.Name)
		}

		fields := make([]*schema.Field, 0, len(entity.Fields))
		for _, def := range entity.Fields {
			field, err := c.field(entity, def)
			if err != nil {
				return err
			}
			fields = append(fields, field)
		}

		s, err := schema.New(entity.Name, namer, fields...)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}

		if entity.Table != "" {
			s.Table = entity.Table
		}
		c.schemas[entity.Name] = s
	}

	// every entity type is declared, references can be checked
	for _, entity := range c.Entities {
		for _, def := range entity.Fields {
			for _, ref := range def.References {
				if _, err := c.lookUpReference(ref); err != nil {
					return fmt.Errorf("%v.%v: %w", entity.Name, def.Name, err)
				}
			}
		}
	}

	return nil
}

func (c *Catalog) field(entity *EntityDefinition, def *FieldDefinition) (*schema.Field, error) {
	dataType, err := parseDataType(def.Type)
	if err != nil {
		return nil, fmt.Errorf("%v.%v: %w", entity.Name, def.Name, err)
	}

	field := &schema.Field{
		Name:       def.Name,
		DBName:     def.Column,
		DataType:   dataType,
		PrimaryKey: def.Primary,
		Unique:     def.Unique,
	}

	if len(def.References) > 0 {
		refs := append([]string(nil), def.References...)
		field.References = schema.Lazy(func() []*schema.Field {
			targets := make([]*schema.Field, 0, len(refs))
			for _, ref := range refs {
				if target, err := c.lookUpReference(ref); err == nil {
					targets = append(targets, target)
				}
			}
			return targets
		})
	}

	return field, nil
}

func (c *Catalog) lookUpReference(ref string) (*schema.Field, error) {
	typeName, fieldName, ok := strings.Cut(ref, ".")
	if !ok || typeName == "" || fieldName == "" {
		return nil, fmt.Errorf("%w: reference %q is not Type.Field", ErrInvalidDefinition, ref)
	}

	s, ok := c.schemas[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownEntity, typeName)
	}

	field, ok := s.FieldsByName[fieldName]
	if !ok {
		return nil, fmt.Errorf("%w: reference %q matches no field", ErrInvalidDefinition, ref)
	}
	return field, nil
}

func parseDataType(name string) (schema.DataType, error) {
	switch dataType := schema.DataType(strings.ToLower(name)); dataType {
	case "":
		return "", nil
	case schema.Bool, schema.Int, schema.Uint, schema.Float, schema.String, schema.Time, schema.Bytes:
		return dataType, nil
	}
	return "", fmt.Errorf("%w: data type %q", ErrInvalidDefinition, name)
}
