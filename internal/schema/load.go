package schema

import (
	"fmt"

	entschema "github.com/matthewbaird/oql/ent/schema"
	"github.com/matthewbaird/oql/internal/config"
	"github.com/matthewbaird/oql/internal/oql"
)

// FromConfig builds a registry from the configured metadata source, then
// adds the configured namespace aliases, classes, and functions.
func FromConfig(cfg *config.Config) (*Registry, error) {
	reg := NewRegistry(cfg.Metadata.Namespace)

	switch cfg.Metadata.Source {
	case config.SourceEnt:
		if err := LoadEnt(reg, entschema.Entities()...); err != nil {
			return nil, fmt.Errorf("loading ent schema: %w", err)
		}
	case config.SourceCUE:
		if err := LoadCUE(reg, cfg.Metadata.Path); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown metadata source %q", cfg.Metadata.Source)
	}

	if err := Configure(reg, cfg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Configure applies the namespaces, classes, and functions from cfg.
func Configure(reg *Registry, cfg *config.Config) error {
	for alias, ns := range cfg.Namespaces {
		reg.RegisterNamespace(alias, ns)
	}

	for _, c := range cfg.Classes {
		cd := &oql.ClassDescriptor{Name: c.Name, Abstract: c.Abstract}
		if !c.Abstract {
			cd.Constructor = &oql.Constructor{Variadic: c.Variadic}
			for _, p := range c.Params {
				cd.Constructor.Params = append(cd.Constructor.Params, oql.Param{Name: p.Name, Optional: p.Optional})
			}
		}
		reg.RegisterClass(cd)
	}

	for _, f := range cfg.Functions {
		cat, err := oql.ParseFunctionCategory(f.Returns)
		if err != nil {
			return fmt.Errorf("function %s: %w", f.Name, err)
		}
		maxArgs := -1
		if f.MaxArgs != nil {
			maxArgs = *f.MaxArgs
		}
		if err := reg.RegisterFunction(FunctionDef{Name: f.Name, Category: cat, MinArgs: f.MinArgs, MaxArgs: maxArgs}); err != nil {
			return err
		}
	}
	return nil
}
