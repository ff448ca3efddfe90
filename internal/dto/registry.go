package dto

import "slices"

// TypeRegistry maps type names to types. It is pre-seeded with the 14 leaf
// types and is used by the JSON builders to resolve named types.
//
// TypeRegistry is not safe for concurrent use; a registry normally belongs
// to one parsing session.
type TypeRegistry struct {
	types map[string]AnyType
	order []string
}

// NewTypeRegistry creates a registry holding the leaf types.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{types: make(map[string]AnyType, len(leafNames))}
	for code, name := range leafNames {
		r.types[name] = AnyType{code: TypeCode(code)}
		r.order = append(r.order, name)
	}
	return r
}

// RegisterType registers t under its own name.
func (r *TypeRegistry) RegisterType(t AnyType) error {
	return r.RegisterAlias(t.Name(), t)
}

// RegisterAlias registers t under name. Registering an existing name
// succeeds only when the type is structurally identical to the registered
// one.
func (r *TypeRegistry) RegisterAlias(name string, t AnyType) error {
	if name == "" {
		return invalidOp("RegisterType", ErrInvalidName, "cannot register type %s without a name", t)
	}
	if existing, ok := r.types[name]; ok {
		if existing.Equal(t) {
			return nil
		}
		return invalidOp("RegisterType", ErrDuplicateKey, "name %q already registered with a different type", name)
	}
	r.types[name] = t
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the type registered under name.
func (r *TypeRegistry) Lookup(name string) (AnyType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Has reports whether name is registered.
func (r *TypeRegistry) Has(name string) bool {
	_, ok := r.types[name]
	return ok
}

// Names returns registered names in registration order.
func (r *TypeRegistry) Names() []string {
	return slices.Clone(r.order)
}

// Len returns the number of registered names.
func (r *TypeRegistry) Len() int {
	return len(r.order)
}
