package schema

import "github.com/matthewbaird/oql/internal/oql"

// EntityView is the JSON form of an entity's metadata, with fields and
// associations in declaration order.
type EntityView struct {
	Name         string            `json:"name"`
	ShortName    string            `json:"short_name"`
	Identifier   []string          `json:"identifier"`
	Fields       []FieldView       `json:"fields"`
	Associations []AssociationView `json:"associations"`
}

// FieldView is one mapped field.
type FieldView struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable,omitempty"`
}

// AssociationView is one association.
type AssociationView struct {
	Field      string `json:"field"`
	Target     string `json:"target"`
	Kind       string `json:"kind"`
	Owning     bool   `json:"owning"`
	MappedBy   string `json:"mapped_by,omitempty"`
	InversedBy string `json:"inversed_by,omitempty"`
}

// View converts metadata to its JSON form.
func View(md *oql.EntityMetadata) EntityView {
	v := EntityView{
		Name:         md.Name,
		ShortName:    ShortName(md.Name),
		Identifier:   md.Identifier,
		Fields:       make([]FieldView, 0, len(md.FieldOrder)),
		Associations: make([]AssociationView, 0, len(md.AssociationOrder)),
	}
	for _, name := range md.FieldOrder {
		f := md.Fields[name]
		v.Fields = append(v.Fields, FieldView{Name: name, Type: f.Type, Nullable: f.Nullable})
	}
	for _, name := range md.AssociationOrder {
		a := md.Associations[name]
		v.Associations = append(v.Associations, AssociationView{
			Field:      name,
			Target:     a.TargetEntity,
			Kind:       a.Kind.String(),
			Owning:     a.Owning,
			MappedBy:   a.MappedBy,
			InversedBy: a.InversedBy,
		})
	}
	return v
}

// FunctionView describes a callable function.
type FunctionView struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Custom   bool   `json:"custom,omitempty"`
	MinArgs  int    `json:"min_args,omitempty"`
	MaxArgs  int    `json:"max_args,omitempty"` // -1 for no limit
}

var aggregateFunctions = []string{"AVG", "COUNT", "MAX", "MIN", "SUM"}

// FunctionCatalog lists built-in functions by category, then aggregates,
// then the registry's custom functions.
func FunctionCatalog(r *Registry) []FunctionView {
	var out []FunctionView
	for _, cat := range []oql.FunctionCategory{oql.StringFunction, oql.NumericFunction, oql.DatetimeFunction} {
		for _, name := range oql.BuiltinFunctions(cat) {
			out = append(out, FunctionView{Name: name, Category: cat.String()})
		}
	}
	for _, name := range aggregateFunctions {
		out = append(out, FunctionView{Name: name, Category: "aggregate", MinArgs: 1, MaxArgs: 1})
	}
	for _, f := range r.Functions() {
		out = append(out, FunctionView{
			Name:     f.Name,
			Category: f.Category.String(),
			Custom:   true,
			MinArgs:  f.MinArgs,
			MaxArgs:  f.MaxArgs,
		})
	}
	return out
}
