package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var validReturns = map[string]bool{"string": true, "numeric": true, "datetime": true}

// Validate checks the loaded configuration for values the rest of the
// program cannot use.
func (c *Config) Validate() error {
	var errs []error

	switch c.Metadata.Source {
	case SourceEnt:
	case SourceCUE:
		if c.Metadata.Path == "" {
			errs = append(errs, errors.New("metadata.path is required when metadata.source is cue"))
		}
	default:
		errs = append(errs, fmt.Errorf("metadata.source must be %q or %q, got %q", SourceEnt, SourceCUE, c.Metadata.Source))
	}

	for i, f := range c.Functions {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("functions[%d]: name is required", i))
		}
		if !validReturns[strings.ToLower(f.Returns)] {
			errs = append(errs, fmt.Errorf("functions[%d] %s: returns must be string, numeric, or datetime", i, f.Name))
		}
		if f.MinArgs < 0 || (f.MaxArgs != nil && *f.MaxArgs >= 0 && *f.MaxArgs < f.MinArgs) {
			errs = append(errs, fmt.Errorf("functions[%d] %s: invalid argument bounds", i, f.Name))
		}
	}
	for i, cl := range c.Classes {
		if cl.Name == "" {
			errs = append(errs, fmt.Errorf("classes[%d]: name is required", i))
		}
	}

	if c.Parser.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("parser.max_depth must not be negative, got %d", c.Parser.MaxDepth))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	for key, v := range map[string]string{
		"server.request_timeout": c.Server.RequestTimeout,
		"server.session_idle":    c.Server.SessionIdle,
		"server.session_max_age": c.Server.SessionMaxAge,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Duration parses a duration setting, falling back to def when unset.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
