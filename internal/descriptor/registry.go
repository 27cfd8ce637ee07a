package descriptor

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SchemaConsistencyError reports node types whose own declared defaults or
// ranges do not match their attribute kinds. Offending attributes inside
// nested groups are reported as colon-joined paths.
type SchemaConsistencyError struct {
	Type  string
	Attrs []string
}

func (e *SchemaConsistencyError) Error() string {
	return fmt.Sprintf("node type %q: inconsistent attribute declarations: %s", e.Type, strings.Join(e.Attrs, ", "))
}

// Registry holds every known node type for one application instance.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Descriptor
}

// NewRegistry creates an empty node type registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Descriptor)}
}

// Register validates and stores a node type. Registering the same type name
// twice panics: type registration happens once at startup. A descriptor
// whose defaults or ranges disagree with their declared kinds is rejected
// with a *SchemaConsistencyError.
func (r *Registry) Register(d *Descriptor) error {
	if err := Check(d); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[d.Type]; exists {
		panic(fmt.Sprintf("node type '%s' already registered", d.Type))
	}
	r.types[d.Type] = d
	return nil
}

// Get returns the descriptor registered under the given type name.
func (r *Registry) Get(typeName string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[typeName]
	return d, ok
}

// Types lists the registered type names in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Check runs the schema consistency check over every declared and internal
// attribute of a descriptor.
func Check(d *Descriptor) error {
	var invalid []string
	for _, in := range d.Inputs {
		if name := in.CheckValueTypes(); name != "" {
			invalid = append(invalid, name)
		}
	}
	for _, out := range d.Outputs {
		if name := out.CheckValueTypes(); name != "" {
			invalid = append(invalid, name)
		}
	}
	for _, in := range InternalInputs() {
		if name := in.CheckValueTypes(); name != "" {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return &SchemaConsistencyError{Type: d.Type, Attrs: invalid}
	}
	return nil
}
