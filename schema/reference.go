package schema

// FieldSet fields keyed by name, iterated in insertion order
type FieldSet struct {
	names  []string
	fields map[string]*Field
}

func NewFieldSet(fields ...*Field) *FieldSet {
	set := &FieldSet{fields: map[string]*Field{}}
	for _, field := range fields {
		set.Set(field)
	}
	return set
}

// Set adds the field, replacing a field with the same name in place
func (set *FieldSet) Set(field *Field) {
	if set.fields == nil {
		set.fields = map[string]*Field{}
	}
	if _, ok := set.fields[field.Name]; !ok {
		set.names = append(set.names, field.Name)
	}
	set.fields[field.Name] = field
}

func (set *FieldSet) Get(name string) *Field {
	if set == nil {
		return nil
	}
	return set.fields[name]
}

func (set *FieldSet) Delete(name string) {
	if set == nil {
		return
	}
	if _, ok := set.fields[name]; !ok {
		return
	}
	delete(set.fields, name)
	for idx, n := range set.names {
		if n == name {
			set.names = append(set.names[:idx:idx], set.names[idx+1:]...)
			break
		}
	}
}

func (set *FieldSet) Len() int {
	if set == nil {
		return 0
	}
	return len(set.names)
}

// Names returns field names in insertion order
func (set *FieldSet) Names() []string {
	if set == nil {
		return nil
	}
	return append([]string(nil), set.names...)
}

// Fields returns fields in insertion order
func (set *FieldSet) Fields() []*Field {
	if set == nil {
		return nil
	}
	fields := make([]*Field, 0, len(set.names))
	for _, name := range set.names {
		fields = append(fields, set.fields[name])
	}
	return fields
}

// Merge sets every field of other into set
func (set *FieldSet) Merge(other *FieldSet) {
	for _, field := range other.Fields() {
		set.Set(field)
	}
}

func (set *FieldSet) Clone() *FieldSet {
	return NewFieldSet(set.Fields()...)
}

// Registry references declared by the fields of one entity type
//
//	References: target entity type name => field name => field
//	Deferred:   field name => field with Deferred references
//
// a field is registered in exactly one of them
type Registry struct {
	References map[string]*FieldSet
	Deferred   *FieldSet
}

func NewRegistry() *Registry {
	return &Registry{References: map[string]*FieldSet{}, Deferred: NewFieldSet()}
}

// Add registers the references of field
func (registry *Registry) Add(field *Field) {
	switch field.References.(type) {
	case Deferred:
		registry.Deferred.Set(field)
	case Direct:
		for _, target := range field.Targets() {
			registry.add(target.Schema.Name, field)
		}
	}
}

func (registry *Registry) add(target string, field *Field) {
	set, ok := registry.References[target]
	if !ok {
		set = NewFieldSet()
		registry.References[target] = set
	}
	set.Set(field)
}

// Remove unregisters the references of field, deleting emptied target buckets
func (registry *Registry) Remove(field *Field) {
	registry.Deferred.Delete(field.Name)

	for target, set := range registry.References {
		if set.Get(field.Name) != nil {
			set.Delete(field.Name)
			if set.Len() == 0 {
				delete(registry.References, target)
			}
		}
	}
}

// Clone copies both mappings so the clone can be mutated independently
func (registry *Registry) Clone() *Registry {
	clone := &Registry{References: make(map[string]*FieldSet, len(registry.References)), Deferred: registry.Deferred.Clone()}
	for target, set := range registry.References {
		clone.References[target] = set.Clone()
	}
	return clone
}

// rebind replaces registered fields with the fields of the same name in schema
func (registry *Registry) rebind(schema *Schema) {
	rebindSet := func(set *FieldSet) {
		for _, name := range set.Names() {
			if field, ok := schema.FieldsByName[name]; ok {
				set.Set(field)
			}
		}
	}

	rebindSet(registry.Deferred)
	for _, set := range registry.References {
		rebindSet(set)
	}
}

// Resolve returns the direct references merged with the results of every deferred
// reference. A deferred field yields a copy of itself per resolved target so the
// declared field is left untouched.
func (registry *Registry) Resolve() map[string]*FieldSet {
	references := make(map[string]*FieldSet, len(registry.References))
	for target, set := range registry.References {
		references[target] = set.Clone()
	}

	for _, field := range registry.Deferred.Fields() {
		for _, target := range field.Targets() {
			if target == nil || target.Schema == nil {
				continue
			}

			set, ok := references[target.Schema.Name]
			if !ok {
				set = NewFieldSet()
				references[target.Schema.Name] = set
			}

			if resolved := set.Get(field.Name); resolved != nil {
				resolved.References = append(resolved.References.(Direct), target)
			} else {
				resolved := *field
				resolved.References = Direct{target}
				set.Set(&resolved)
			}
		}
	}

	return references
}
