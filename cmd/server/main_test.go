package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"formfill-mcp-server/internal/mapping"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestNormalizeCommand(t *testing.T) {
	out, err := execute(t, "normalize", "date", "1990-01-15")
	require.NoError(t, err)
	assert.Equal(t, "01/15/1990\n", out)

	out, err = execute(t, "normalize", "state", "tx")
	require.NoError(t, err)
	assert.Equal(t, "Texas\n", out)

	_, err = execute(t, "normalize", "zip", "94103")
	assert.ErrorContains(t, err, "unknown kind")

	_, err = execute(t, "normalize", "date")
	assert.Error(t, err)
}

func TestMappingCommand(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "mapping", "--json")
		require.NoError(t, err)

		var m mapping.Mapping
		require.NoError(t, json.Unmarshal([]byte(out), &m))
		assert.Len(t, m.Fields, len(mapping.Default().Fields))
	})

	t.Run("yaml round trips", func(t *testing.T) {
		out, err := execute(t, "mapping")
		require.NoError(t, err)

		m, err := mapping.Parse([]byte(out))
		require.NoError(t, err)
		assert.Equal(t, mapping.Default(), m)
	})

	t.Run("custom mapping file", func(t *testing.T) {
		dir := t.TempDir()
		mappingPath := filepath.Join(dir, "mapping.yaml")
		require.NoError(t, os.WriteFile(mappingPath, []byte(`
sections:
  - id: beneficiary
    title: Passport
fields:
  - target: passport-surname
    name: Surname
    section: beneficiary
    source: passport
    keys: [surname]
`), 0o644))
		configPath := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("form:\n  mapping_path: "+mappingPath+"\n"), 0o644))

		out, err := execute(t, "--config", configPath, "mapping", "--json")
		require.NoError(t, err)
		var m mapping.Mapping
		require.NoError(t, json.Unmarshal([]byte(out), &m))
		require.Len(t, m.Fields, 1)
		assert.Equal(t, "passport-surname", m.Fields[0].Target)
	})
}

func TestRunCommandValidation(t *testing.T) {
	_, err := execute(t, "run")
	assert.ErrorContains(t, err, "--representative or --passport")

	_, err = execute(t, "run", "--passport", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read document")

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "mapping")
	assert.ErrorContains(t, err, "failed to load config")

	_, err = execute(t, "--log-level", "loud", "mapping")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("verbose", "")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "server.log")
	logger, err := newLogger("debug", path)
	require.NoError(t, err)
	logger.Debug("hello")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"hello"`)
}
