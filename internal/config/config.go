// Package config loads oql configuration from defaults, an optional YAML
// file, OQL_* environment variables, and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "OQL_"

// Metadata sources.
const (
	SourceEnt = "ent"
	SourceCUE = "cue"
)

// Config holds all oql configuration.
type Config struct {
	Metadata   MetadataConfig    `koanf:"metadata"`
	Namespaces map[string]string `koanf:"namespaces"`
	Functions  []FunctionConfig  `koanf:"functions"`
	Classes    []ClassConfig     `koanf:"classes"`
	Parser     ParserConfig      `koanf:"parser"`
	Server     ServerConfig      `koanf:"server"`
	History    HistoryConfig     `koanf:"history"`
	Log        LogConfig         `koanf:"log"`

	// File is the config file that was read, or "".
	File string `koanf:"-"`
}

// MetadataConfig selects where entity metadata comes from.
type MetadataConfig struct {
	Source    string `koanf:"source"`    // "ent" or "cue"
	Path      string `koanf:"path"`      // CUE file or package directory
	Namespace string `koanf:"namespace"` // default namespace for unqualified names
}

// FunctionConfig registers a custom function.
type FunctionConfig struct {
	Name    string `koanf:"name"`
	Returns string `koanf:"returns"` // string, numeric, or datetime
	MinArgs int    `koanf:"min_args"`
	MaxArgs *int   `koanf:"max_args"` // nil for no limit
}

// ClassConfig registers a class for NEW expressions.
type ClassConfig struct {
	Name     string        `koanf:"name"`
	Abstract bool          `koanf:"abstract"`
	Params   []ParamConfig `koanf:"params"`
	Variadic bool          `koanf:"variadic"`
}

// ParamConfig is one constructor parameter.
type ParamConfig struct {
	Name     string `koanf:"name"`
	Optional bool   `koanf:"optional"`
}

// ParserConfig tunes the parser.
type ParserConfig struct {
	MaxDepth int `koanf:"max_depth"`
}

// ServerConfig configures `oql serve`.
type ServerConfig struct {
	Port           int    `koanf:"port"`
	RequestTimeout string `koanf:"request_timeout"` // time.Duration syntax
	SessionIdle    string `koanf:"session_idle"`
	SessionMaxAge  string `koanf:"session_max_age"`
}

// HistoryConfig configures the parse history store.
type HistoryConfig struct {
	Path string `koanf:"path"` // sqlite file; "" keeps history in memory
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text or json
}

// Defaults returns the built-in configuration values as koanf keys.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"metadata.source":        SourceEnt,
		"metadata.namespace":     `App\Entity`,
		"parser.max_depth":       256,
		"server.port":            8080,
		"server.request_timeout": "5s",
		"server.session_idle":    "30m",
		"server.session_max_age": "24h",
		"history.path":           "",
		"log.level":              "info",
		"log.format":             "text",
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"metadata-source":    "metadata.source",
	"metadata-path":      "metadata.path",
	"metadata-namespace": "metadata.namespace",
	"max-depth":          "parser.max_depth",
	"port":               "server.port",
	"history":            "history.path",
	"log-level":          "log.level",
	"log-format":         "log.format",
}

// findConfigFile returns the config file to read.
// Priority: explicit path > oql.yaml > oql.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"oql.yaml", "oql.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey turns OQL_PARSER_MAX_DEPTH into parser.max_depth: the first
// underscore after the prefix separates the section from the key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// Load reads configuration. Precedence (highest to lowest): flags > env
// vars > config file > defaults. Only flags the user set are applied.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment (OQL_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
