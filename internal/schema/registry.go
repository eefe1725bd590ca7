// Package schema provides the entity metadata registry the OQL parser
// resolves names against.
//
// A registry is populated once at startup by one of the loaders (LoadEnt,
// LoadCUE) plus whatever namespaces, classes, and functions the
// configuration adds. After loading it is safe for concurrent read access.
package schema

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/matthewbaird/oql/internal/oql"
)

// FunctionDef describes a host-registered function. MaxArgs < 0 means
// unbounded.
type FunctionDef struct {
	Name     string
	Category oql.FunctionCategory
	MinArgs  int
	MaxArgs  int
}

// Registry holds entity metadata, namespace aliases, constructible classes,
// and custom functions. It implements oql.MetadataProvider.
type Registry struct {
	mu sync.RWMutex

	defaultNamespace string
	entities         map[string]*oql.EntityMetadata // qualified name -> metadata
	entityOrder      []string                       // qualified names, registration order
	namespaces       map[string]string              // alias -> namespace
	classes          map[string]*oql.ClassDescriptor
	functions        map[string]FunctionDef // lower-cased name -> def
}

var _ oql.MetadataProvider = (*Registry)(nil)

// NewRegistry creates an empty registry. Unqualified entity names are
// looked up in defaultNamespace.
func NewRegistry(defaultNamespace string) *Registry {
	return &Registry{
		defaultNamespace: strings.Trim(defaultNamespace, `\`),
		entities:         make(map[string]*oql.EntityMetadata),
		namespaces:       make(map[string]string),
		classes:          make(map[string]*oql.ClassDescriptor),
		functions:        make(map[string]FunctionDef),
	}
}

// DefaultNamespace returns the namespace unqualified names resolve in.
func (r *Registry) DefaultNamespace() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultNamespace
}

// SetDefaultNamespace changes the namespace unqualified names resolve in.
func (r *Registry) SetDefaultNamespace(ns string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultNamespace = strings.Trim(ns, `\`)
}

// Qualify prefixes name with the default namespace unless it is already
// qualified.
func (r *Registry) Qualify(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.qualify(name)
}

func (r *Registry) qualify(name string) string {
	name = strings.TrimPrefix(name, `\`)
	if strings.Contains(name, `\`) || r.defaultNamespace == "" {
		return name
	}
	return r.defaultNamespace + `\` + name
}

// ShortName returns the part of a qualified name after the last backslash.
func ShortName(name string) string {
	return name[strings.LastIndexByte(name, '\\')+1:]
}

// Register adds an entity. Its name is qualified with the default namespace
// when needed; association targets are qualified the same way.
func (r *Registry) Register(md *oql.EntityMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	md.Name = r.qualify(md.Name)
	if _, ok := r.entities[md.Name]; ok {
		return fmt.Errorf("entity %s registered twice", md.Name)
	}
	if len(md.Identifier) == 0 {
		return fmt.Errorf("entity %s has no identifier", md.Name)
	}
	for _, a := range md.Associations {
		a.TargetEntity = r.qualify(a.TargetEntity)
	}
	r.entities[md.Name] = md
	r.entityOrder = append(r.entityOrder, md.Name)
	return nil
}

// RegisterNamespace maps alias (as in "Alias:Entity") to a namespace.
func (r *Registry) RegisterNamespace(alias, namespace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namespaces[alias] = strings.Trim(namespace, `\`)
}

// RegisterClass adds a class that NEW expressions may instantiate.
func (r *Registry) RegisterClass(c *oql.ClassDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Name = strings.TrimPrefix(c.Name, `\`)
	r.classes[c.Name] = c
}

// RegisterFunction adds a custom function. A custom function shadows a
// built-in of the same name.
func (r *Registry) RegisterFunction(def FunctionDef) error {
	if def.Name == "" {
		return fmt.Errorf("function without a name")
	}
	if def.MaxArgs >= 0 && def.MaxArgs < def.MinArgs {
		return fmt.Errorf("function %s: max_args %d below min_args %d", def.Name, def.MaxArgs, def.MinArgs)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	def.Name = strings.ToUpper(def.Name)
	r.functions[strings.ToLower(def.Name)] = def
	return nil
}

// Validate checks that every association points at a registered entity and
// that mappedBy/inversedBy name an association on the target.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.entityOrder {
		md := r.entities[name]
		for _, field := range md.AssociationOrder {
			a := md.Associations[field]
			target, ok := r.entities[a.TargetEntity]
			if !ok {
				return fmt.Errorf("%s.%s targets unknown entity %s", ShortName(md.Name), field, a.TargetEntity)
			}
			for _, other := range []string{a.MappedBy, a.InversedBy} {
				if other == "" {
					continue
				}
				if _, ok := target.Associations[other]; !ok {
					return fmt.Errorf("%s.%s refers to missing association %s.%s",
						ShortName(md.Name), field, ShortName(target.Name), other)
				}
			}
		}
	}
	return nil
}

// ── oql.MetadataProvider ────────────────────────────────────────────────────

// EntityMetadata returns metadata for a qualified or default-namespace name.
func (r *Registry) EntityMetadata(name string) (*oql.EntityMetadata, error) {
	if md := r.Entity(name); md != nil {
		return md, nil
	}
	return nil, fmt.Errorf("%w: %s", oql.ErrEntityNotFound, name)
}

// ResolveNamespaceAlias expands a namespace alias.
func (r *Registry) ResolveNamespaceAlias(alias string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ns, ok := r.namespaces[alias]; ok {
		return ns, nil
	}
	return "", fmt.Errorf("%w: %s", oql.ErrUnknownNamespaceAlias, alias)
}

// CustomFunction returns a factory for a registered function of category.
func (r *Registry) CustomFunction(name string, category oql.FunctionCategory) (oql.FunctionFactory, bool) {
	r.mu.RLock()
	def, ok := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok || def.Category != category {
		return nil, false
	}
	return oql.GenericFunctionFactory(def.MinArgs, def.MaxArgs), true
}

// Class returns a constructible class by qualified name.
func (r *Registry) Class(name string) (*oql.ClassDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[strings.TrimPrefix(name, `\`)]
	return c, ok
}

// EntityNames returns the short names of all entities in registration
// order. The parser uses them for "did you mean" suggestions.
func (r *Registry) EntityNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.entityOrder))
	for i, n := range r.entityOrder {
		names[i] = ShortName(n)
	}
	return names
}

// ── Read helpers ────────────────────────────────────────────────────────────

// Entity returns the entity for name, or nil if not found.
func (r *Registry) Entity(name string) *oql.EntityMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name = strings.TrimPrefix(name, `\`)
	if md, ok := r.entities[name]; ok {
		return md
	}
	if md, ok := r.entities[r.qualify(name)]; ok {
		return md
	}
	return nil
}

// Entities returns all entities in registration order.
func (r *Registry) Entities() []*oql.EntityMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*oql.EntityMetadata, len(r.entityOrder))
	for i, n := range r.entityOrder {
		out[i] = r.entities[n]
	}
	return out
}

// Namespaces returns the alias -> namespace map.
func (r *Registry) Namespaces() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.namespaces))
	for k, v := range r.namespaces {
		out[k] = v
	}
	return out
}

// Classes returns the registered classes sorted by name.
func (r *Registry) Classes() []*oql.ClassDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*oql.ClassDescriptor, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *oql.ClassDescriptor) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Functions returns the custom functions sorted by name.
func (r *Registry) Functions() []FunctionDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FunctionDef, 0, len(r.functions))
	for _, f := range r.functions {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b FunctionDef) int { return strings.Compare(a.Name, b.Name) })
	return out
}
