package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("metadata-source", "ent", "")
	fs.String("metadata-path", "", "")
	fs.String("log-level", "info", "")
	fs.Int("port", 8080, "")
	fs.Bool("json", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceEnt, cfg.Metadata.Source)
	assert.Equal(t, `App\Entity`, cfg.Metadata.Namespace)
	assert.Equal(t, 256, cfg.Parser.MaxDepth)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.File)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
metadata:
  source: cue
  path: model.cue
  namespace: Blog\Model
namespaces:
  Blog: Blog\Model
functions:
  - name: word_count
    returns: numeric
    min_args: 1
    max_args: 1
  - name: slugify
    returns: string
classes:
  - name: Blog\View\Card
    params:
      - name: title
      - name: author
        optional: true
parser:
  max_depth: 64
log:
  format: json
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, SourceCUE, cfg.Metadata.Source)
	assert.Equal(t, `Blog\Model`, cfg.Metadata.Namespace)
	assert.Equal(t, map[string]string{"Blog": `Blog\Model`}, cfg.Namespaces)
	assert.Equal(t, 64, cfg.Parser.MaxDepth)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port, "defaults survive a partial file")

	require.Len(t, cfg.Functions, 2)
	require.NotNil(t, cfg.Functions[0].MaxArgs)
	assert.Equal(t, 1, *cfg.Functions[0].MaxArgs)
	assert.Nil(t, cfg.Functions[1].MaxArgs)

	require.Len(t, cfg.Classes, 1)
	assert.Equal(t, []ParamConfig{{Name: "title"}, {Name: "author", Optional: true}}, cfg.Classes[0].Params)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
log:
  level: warn
server:
  port: 9000
parser:
  max_depth: 10
`)
	t.Setenv("OQL_LOG_LEVEL", "error")
	t.Setenv("OQL_PARSER_MAX_DEPTH", "20")

	flags := testFlags(t)
	require.NoError(t, flags.Parse([]string{"--log-level", "debug"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level, "flag beats env")
	assert.Equal(t, 20, cfg.Parser.MaxDepth, "env beats file")
	assert.Equal(t, 9000, cfg.Server.Port, "unchanged flag does not override file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad source", "metadata:\n  source: xml\n", "metadata.source"},
		{"cue without path", "metadata:\n  source: cue\n", "metadata.path is required"},
		{"bad returns", "functions:\n  - name: f\n    returns: boolean\n", "returns must be"},
		{"bad bounds", "functions:\n  - name: f\n    returns: string\n    min_args: 3\n    max_args: 1\n", "invalid argument bounds"},
		{"bad level", "log:\n  level: loud\n", "unknown level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"bad timeout", "server:\n  request_timeout: soon\n", "server.request_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "parser.max_depth", envKey("OQL_PARSER_MAX_DEPTH"))
	assert.Equal(t, "metadata.source", envKey("OQL_METADATA_SOURCE"))
	assert.Equal(t, "history.path", envKey("OQL_HISTORY_PATH"))
}

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, Duration("5s", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("bogus", time.Minute))
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, FromContext(ctx))
	assert.NotNil(t, GetLogger(ctx))

	cfg := &Config{File: "oql.yaml"}
	logger := slog.New(slog.DiscardHandler)
	ctx = WithLogger(WithConfig(ctx, cfg), logger)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Same(t, logger, GetLogger(ctx))
}
