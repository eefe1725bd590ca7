package oql

import (
	"errors"
	"strings"
)

// ErrEntityNotFound is returned by a MetadataProvider for unknown entities.
var ErrEntityNotFound = errors.New("entity not found")

// ErrUnknownNamespaceAlias is returned by a MetadataProvider for unknown
// namespace aliases.
var ErrUnknownNamespaceAlias = errors.New("unknown namespace alias")

// MetadataProvider supplies everything the parser needs to know about the
// object model.
type MetadataProvider interface {
	// EntityMetadata returns metadata for a fully qualified entity name.
	EntityMetadata(name string) (*EntityMetadata, error)
	// ResolveNamespaceAlias expands the alias part of "Alias:Entity".
	ResolveNamespaceAlias(alias string) (string, error)
	// CustomFunction returns a host-registered function for the category.
	CustomFunction(name string, category FunctionCategory) (FunctionFactory, bool)
	// Class describes a constructible class used by NEW expressions.
	Class(name string) (*ClassDescriptor, bool)
}

// AssociationKind is a bitmask of association cardinalities.
type AssociationKind int

const (
	OneToOne   AssociationKind = 1
	ManyToOne  AssociationKind = 2
	OneToMany  AssociationKind = 4
	ManyToMany AssociationKind = 8

	ToOne  = OneToOne | ManyToOne
	ToMany = OneToMany | ManyToMany
)

func (k AssociationKind) String() string {
	switch k {
	case OneToOne:
		return "O2O"
	case ManyToOne:
		return "M2O"
	case OneToMany:
		return "O2M"
	case ManyToMany:
		return "M2M"
	}
	return "UNKNOWN"
}

// FieldMapping is a plain (non-association) property of an entity.
type FieldMapping struct {
	Name     string
	Type     string
	Nullable bool
}

// Association is a relationship from one entity to another.
type Association struct {
	Field        string
	TargetEntity string
	Kind         AssociationKind
	Owning       bool
	MappedBy     string // set on the inverse side
	InversedBy   string // set on the owning side
}

// IsToOne reports whether the association references a single entity.
func (a *Association) IsToOne() bool { return a.Kind&ToOne != 0 }

// EntityMetadata describes an entity: its identifier, fields, and
// associations.
type EntityMetadata struct {
	Name             string // fully qualified, e.g. App\Entity\User
	Identifier       []string
	Fields           map[string]*FieldMapping
	Associations     map[string]*Association
	FieldOrder       []string
	AssociationOrder []string
}

// HasField reports whether name is a plain field.
func (m *EntityMetadata) HasField(name string) bool {
	_, ok := m.Fields[name]
	return ok
}

// Association returns the association mapped to name.
func (m *EntityMetadata) Association(name string) (*Association, bool) {
	a, ok := m.Associations[name]
	return a, ok
}

// Namespace returns the part of the name before the last backslash, or ""
// for unqualified names.
func (m *EntityMetadata) Namespace() string {
	if i := strings.LastIndexByte(m.Name, '\\'); i >= 0 {
		return m.Name[:i]
	}
	return ""
}

// Properties returns field and association names in declaration order.
func (m *EntityMetadata) Properties() []string {
	out := make([]string, 0, len(m.FieldOrder)+len(m.AssociationOrder))
	out = append(out, m.FieldOrder...)
	return append(out, m.AssociationOrder...)
}

// Param is a constructor parameter.
type Param struct {
	Name     string
	Optional bool
}

// Constructor describes how a class is constructed.
type Constructor struct {
	Params   []Param
	Variadic bool
}

// Required returns the number of mandatory parameters.
func (c *Constructor) Required() int {
	n := 0
	for _, p := range c.Params {
		if !p.Optional {
			n++
		}
	}
	return n
}

// ClassDescriptor describes a non-entity class that NEW expressions can
// instantiate, usually a DTO.
type ClassDescriptor struct {
	Name        string
	Abstract    bool
	Constructor *Constructor // nil when the class declares none
}
