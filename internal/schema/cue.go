package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/matthewbaird/oql/internal/oql"
)

//go:embed model.cue
var modelSchema string

type cueField struct {
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type cueAssociation struct {
	Target     string `json:"target"`
	Kind       string `json:"kind"`
	Owning     *bool  `json:"owning"`
	MappedBy   string `json:"mapped_by"`
	InversedBy string `json:"inversed_by"`
}

type cueClass struct {
	Abstract    bool `json:"abstract"`
	Constructor *struct {
		Params []struct {
			Name     string `json:"name"`
			Optional bool   `json:"optional"`
		} `json:"params"`
		Variadic bool `json:"variadic"`
	} `json:"constructor"`
}

type cueFunction struct {
	Returns string `json:"returns"`
	MinArgs int    `json:"min_args"`
	MaxArgs int    `json:"max_args"`
}

// LoadCUE reads a model from a .cue file or a directory holding a CUE
// package and adds it to reg. A model that declares a namespace qualifies
// its entities with it and makes it reg's default namespace.
func LoadCUE(reg *Registry, path string) error {
	ctx := cuecontext.New()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("loading CUE model: %w", err)
	}

	var val cue.Value
	if info.IsDir() {
		insts := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(insts) == 0 {
			return fmt.Errorf("loading CUE model: no instances in %s", path)
		}
		if insts[0].Err != nil {
			return fmt.Errorf("loading CUE model: %w", insts[0].Err)
		}
		val = ctx.BuildInstance(insts[0])
	} else {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("loading CUE model: %w", err)
		}
		val = ctx.CompileBytes(src, cue.Filename(path))
	}
	return loadCUEValue(ctx, reg, val)
}

// LoadCUESource is LoadCUE for an in-memory file.
func LoadCUESource(reg *Registry, filename string, src []byte) error {
	ctx := cuecontext.New()
	return loadCUEValue(ctx, reg, ctx.CompileBytes(src, cue.Filename(filename)))
}

func loadCUEValue(ctx *cue.Context, reg *Registry, val cue.Value) error {
	if err := val.Err(); err != nil {
		return fmt.Errorf("building CUE model: %w", err)
	}

	def := ctx.CompileString(modelSchema, cue.Filename("model.cue")).LookupPath(cue.ParsePath("#Model"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("building #Model: %w", err)
	}
	model := def.Unify(val)
	if err := model.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validating CUE model: %w", err)
	}

	prefix := ""
	if ns := model.LookupPath(cue.ParsePath("namespace")); ns.Exists() {
		s, err := ns.String()
		if err != nil {
			return fmt.Errorf("namespace: %w", err)
		}
		prefix = s + `\`
		reg.SetDefaultNamespace(s)
	}

	var namespaces map[string]string
	if err := model.LookupPath(cue.ParsePath("namespaces")).Decode(&namespaces); err != nil {
		return fmt.Errorf("namespaces: %w", err)
	}
	for alias, ns := range namespaces {
		reg.RegisterNamespace(alias, ns)
	}

	iter, _ := model.LookupPath(cue.ParsePath("entities")).Fields()
	for iter.Next() {
		md, err := cueEntity(prefix+iter.Selector().Unquoted(), prefix, iter.Value())
		if err != nil {
			return err
		}
		if err := reg.Register(md); err != nil {
			return err
		}
	}

	iter, _ = model.LookupPath(cue.ParsePath("classes")).Fields()
	for iter.Next() {
		name := iter.Selector().Unquoted()
		var c cueClass
		if err := iter.Value().Decode(&c); err != nil {
			return fmt.Errorf("class %s: %w", name, err)
		}
		cd := &oql.ClassDescriptor{Name: name, Abstract: c.Abstract}
		if c.Constructor != nil {
			cd.Constructor = &oql.Constructor{Variadic: c.Constructor.Variadic}
			for _, p := range c.Constructor.Params {
				cd.Constructor.Params = append(cd.Constructor.Params, oql.Param{Name: p.Name, Optional: p.Optional})
			}
		}
		reg.RegisterClass(cd)
	}

	iter, _ = model.LookupPath(cue.ParsePath("functions")).Fields()
	for iter.Next() {
		name := iter.Selector().Unquoted()
		var f cueFunction
		if err := iter.Value().Decode(&f); err != nil {
			return fmt.Errorf("function %s: %w", name, err)
		}
		cat, err := oql.ParseFunctionCategory(f.Returns)
		if err != nil {
			return fmt.Errorf("function %s: %w", name, err)
		}
		if err := reg.RegisterFunction(FunctionDef{Name: name, Category: cat, MinArgs: f.MinArgs, MaxArgs: f.MaxArgs}); err != nil {
			return err
		}
	}

	return reg.Validate()
}

func cueEntity(name, prefix string, v cue.Value) (*oql.EntityMetadata, error) {
	md := &oql.EntityMetadata{
		Name:         name,
		Fields:       make(map[string]*oql.FieldMapping),
		Associations: make(map[string]*oql.Association),
	}
	if err := v.LookupPath(cue.ParsePath("identifier")).Decode(&md.Identifier); err != nil {
		return nil, fmt.Errorf("%s identifier: %w", name, err)
	}

	fi, _ := v.LookupPath(cue.ParsePath("fields")).Fields()
	for fi.Next() {
		field := fi.Selector().Unquoted()
		var f cueField
		if err := fi.Value().Decode(&f); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, field, err)
		}
		md.Fields[field] = &oql.FieldMapping{Name: field, Type: f.Type, Nullable: f.Nullable}
		md.FieldOrder = append(md.FieldOrder, field)
	}
	for _, id := range md.Identifier {
		if !md.HasField(id) {
			return nil, fmt.Errorf("%s: identifier %s is not a field", name, id)
		}
	}

	ai, _ := v.LookupPath(cue.ParsePath("associations")).Fields()
	for ai.Next() {
		field := ai.Selector().Unquoted()
		var a cueAssociation
		if err := ai.Value().Decode(&a); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, field, err)
		}
		if md.HasField(field) {
			return nil, fmt.Errorf("%s: association %s shadows a field", name, field)
		}
		kind, err := ParseAssociationKind(a.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, field, err)
		}
		target := a.Target
		if prefix != "" && !strings.Contains(target, `\`) {
			target = prefix + target
		}
		assoc := &oql.Association{
			Field:        field,
			TargetEntity: target,
			Kind:         kind,
			MappedBy:     a.MappedBy,
			InversedBy:   a.InversedBy,
		}
		if a.Owning != nil {
			assoc.Owning = *a.Owning
		} else {
			assoc.Owning = a.MappedBy == "" && kind != oql.OneToMany
		}
		md.Associations[field] = assoc
		md.AssociationOrder = append(md.AssociationOrder, field)
	}
	return md, nil
}

// ParseAssociationKind parses "O2O", "M2O", "O2M", or "M2M".
func ParseAssociationKind(s string) (oql.AssociationKind, error) {
	for _, k := range []oql.AssociationKind{oql.OneToOne, oql.ManyToOne, oql.OneToMany, oql.ManyToMany} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown association kind %q", s)
}
