package schema

import (
	"fmt"
	"reflect"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"

	"github.com/matthewbaird/oql/internal/oql"
)

// entDef is one ent schema with its mixin fields and edges flattened in.
type entDef struct {
	name   string
	fields []*field.Descriptor
	edges  []*edge.Descriptor
}

// LoadEnt registers one entity per ent schema. Fields come from the schema
// and its mixins; every schema gets an "id" identifier, declared or not.
// Association kinds follow ent's edge semantics:
//
//	To, no back-reference:   non-unique = O2M (M2M on the same type),
//	                         unique     = M2O (O2O on the same type)
//	To with a From inverse:  cardinality from both sides' uniqueness,
//	                         the From side holds the foreign key
func LoadEnt(reg *Registry, schemas ...ent.Interface) error {
	defs := make([]*entDef, 0, len(schemas))
	byName := make(map[string]*entDef, len(schemas))
	for _, s := range schemas {
		d, err := readEntSchema(s)
		if err != nil {
			return err
		}
		if _, dup := byName[d.name]; dup {
			return fmt.Errorf("ent schema %s loaded twice", d.name)
		}
		defs = append(defs, d)
		byName[d.name] = d
	}

	// edge.To(...).From(...) declares both sides in one descriptor pair.
	// Split it so the assoc edge stays here and the inverse moves to the
	// target, the same shape as two separate declarations.
	type placed struct {
		on *entDef
		e  *edge.Descriptor
	}
	var inverses []placed
	for _, d := range defs {
		kept := make([]*edge.Descriptor, 0, len(d.edges))
		for _, e := range d.edges {
			if e.Ref == nil {
				kept = append(kept, e)
				continue
			}
			assoc, inv := e, e.Ref
			if e.Inverse {
				assoc, inv = e.Ref, e
			}
			target, ok := byName[assoc.Type]
			if !ok {
				return fmt.Errorf("%s.%s targets unknown schema %s", d.name, assoc.Name, assoc.Type)
			}
			kept = append(kept, &edge.Descriptor{Name: assoc.Name, Type: assoc.Type, Unique: assoc.Unique})
			inverses = append(inverses, placed{on: target, e: &edge.Descriptor{
				Name:    inv.Name,
				Type:    d.name,
				RefName: assoc.Name,
				Inverse: true,
				Unique:  inv.Unique,
			}})
		}
		d.edges = kept
	}
	for _, p := range inverses {
		p.on.edges = append(p.on.edges, p.e)
	}

	for _, d := range defs {
		md, err := entMetadata(d, byName)
		if err != nil {
			return err
		}
		if err := reg.Register(md); err != nil {
			return err
		}
	}
	return reg.Validate()
}

func readEntSchema(s ent.Interface) (*entDef, error) {
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	d := &entDef{name: t.Name()}

	var fields []ent.Field
	var edges []ent.Edge
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		edges = append(edges, m.Edges()...)
	}
	fields = append(fields, s.Fields()...)
	edges = append(edges, s.Edges()...)

	for _, f := range fields {
		desc := f.Descriptor()
		if desc.Err != nil {
			return nil, fmt.Errorf("%s.%s: %w", d.name, desc.Name, desc.Err)
		}
		d.fields = append(d.fields, desc)
	}
	for _, e := range edges {
		d.edges = append(d.edges, e.Descriptor())
	}
	return d, nil
}

func entMetadata(d *entDef, byName map[string]*entDef) (*oql.EntityMetadata, error) {
	md := &oql.EntityMetadata{
		Name:         d.name,
		Identifier:   []string{"id"},
		Fields:       make(map[string]*oql.FieldMapping),
		Associations: make(map[string]*oql.Association),
	}

	hasID := false
	for _, f := range d.fields {
		if f.Name == "id" {
			hasID = true
		}
	}
	if !hasID {
		md.Fields["id"] = &oql.FieldMapping{Name: "id", Type: "int"}
		md.FieldOrder = append(md.FieldOrder, "id")
	}
	for _, f := range d.fields {
		md.Fields[f.Name] = &oql.FieldMapping{
			Name:     f.Name,
			Type:     entFieldType(f),
			Nullable: f.Optional || f.Nillable,
		}
		md.FieldOrder = append(md.FieldOrder, f.Name)
	}

	for _, e := range d.edges {
		target, ok := byName[e.Type]
		if !ok {
			return nil, fmt.Errorf("%s.%s targets unknown schema %s", d.name, e.Name, e.Type)
		}
		var a *oql.Association
		if e.Inverse {
			ref := findEdge(target, func(o *edge.Descriptor) bool { return !o.Inverse && o.Name == e.RefName })
			if ref == nil {
				return nil, fmt.Errorf("%s.%s references missing edge %s.%s", d.name, e.Name, e.Type, e.RefName)
			}
			a = inverseAssociation(e, ref)
		} else {
			inv := findEdge(target, func(o *edge.Descriptor) bool {
				return o.Inverse && o.RefName == e.Name && o.Type == d.name
			})
			a = assocAssociation(e, inv, e.Type == d.name)
		}
		if _, dup := md.Fields[e.Name]; dup {
			return nil, fmt.Errorf("%s: edge %s shadows a field", d.name, e.Name)
		}
		md.Associations[e.Name] = a
		md.AssociationOrder = append(md.AssociationOrder, e.Name)
	}
	return md, nil
}

func findEdge(d *entDef, match func(*edge.Descriptor) bool) *edge.Descriptor {
	for _, e := range d.edges {
		if match(e) {
			return e
		}
	}
	return nil
}

// assocAssociation maps an edge.To. inv is its edge.From back-reference,
// if any.
func assocAssociation(e, inv *edge.Descriptor, sameType bool) *oql.Association {
	a := &oql.Association{Field: e.Name, TargetEntity: e.Type}
	if inv == nil {
		switch {
		case !e.Unique && sameType:
			a.Kind, a.Owning = oql.ManyToMany, true
		case !e.Unique:
			a.Kind = oql.OneToMany
		case sameType:
			a.Kind, a.Owning = oql.OneToOne, true
		default:
			a.Kind, a.Owning = oql.ManyToOne, true
		}
		return a
	}

	switch {
	case e.Unique && inv.Unique:
		a.Kind, a.MappedBy = oql.OneToOne, inv.Name
	case inv.Unique:
		a.Kind, a.MappedBy = oql.OneToMany, inv.Name
	case e.Unique:
		a.Kind, a.Owning, a.InversedBy = oql.ManyToOne, true, inv.Name
	default:
		a.Kind, a.Owning, a.InversedBy = oql.ManyToMany, true, inv.Name
	}
	return a
}

// inverseAssociation maps an edge.From whose edge.To is ref.
func inverseAssociation(e, ref *edge.Descriptor) *oql.Association {
	a := &oql.Association{Field: e.Name, TargetEntity: e.Type}
	switch {
	case e.Unique && ref.Unique:
		a.Kind, a.Owning, a.InversedBy = oql.OneToOne, true, ref.Name
	case e.Unique:
		a.Kind, a.Owning, a.InversedBy = oql.ManyToOne, true, ref.Name
	case ref.Unique:
		a.Kind, a.MappedBy = oql.OneToMany, ref.Name
	default:
		a.Kind, a.MappedBy = oql.ManyToMany, ref.Name
	}
	return a
}

func entFieldType(f *field.Descriptor) string {
	if f.Info == nil {
		return "unknown"
	}
	switch f.Info.Type {
	case field.TypeEnum:
		return "enum"
	case field.TypeTime:
		return "time"
	case field.TypeUUID:
		return "uuid"
	case field.TypeJSON:
		return "json"
	case field.TypeFloat32, field.TypeFloat64:
		return "float"
	}
	return f.Info.Type.String()
}
