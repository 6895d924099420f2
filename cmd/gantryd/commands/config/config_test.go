package config

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantrykit/gantry/pkg/config"
)

// executeConfig runs the config command tree with the given arguments.
func executeConfig(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	Cmd.SetOut(buf)
	Cmd.SetErr(buf)
	Cmd.SetArgs(args)

	err := Cmd.Execute()
	return buf.String(), err
}

func TestSchemaCommandReflectsConfigKeys(t *testing.T) {
	schemaOutput = ""

	out, err := executeConfig(t, "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))

	assert.Equal(t, "https://json-schema.org/draft/2020-12/schema", schema["$schema"])
	assert.Equal(t, "Gantry Configuration", schema["title"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has no properties")
	for _, key := range []string{"logging", "server", "middleware", "auth", "database", "identity", "telemetry"} {
		assert.Contains(t, props, key)
	}
}

func TestSchemaCommandWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.schema.json")

	out, err := executeConfig(t, "schema", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "JSON schema written to")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"$schema"`)

	schemaOutput = ""
}

func TestInitCommandCreatesAndRefusesOverwrite(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	initForce = false

	_, err := executeConfig(t, "init")
	require.NoError(t, err)
	assert.True(t, config.DefaultConfigExists())

	_, err = executeConfig(t, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = executeConfig(t, "init", "--force")
	require.NoError(t, err)
	initForce = false
}

func TestValidateCommandRequiresConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	_, err := executeConfig(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config init")
}

func TestValidateCommandAcceptsGenerated(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	initForce = false

	_, err := executeConfig(t, "init")
	require.NoError(t, err)

	_, err = executeConfig(t, "validate")
	require.NoError(t, err)
}

func TestShowCommandRendersEffectiveConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	initForce = false

	_, err := executeConfig(t, "init")
	require.NoError(t, err)

	// show writes to os.Stdout, so capture it through a pipe.
	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stdout
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = old })

	_, err = executeConfig(t, "show")
	require.NoError(t, w.Close())
	os.Stdout = old

	captured, readErr := io.ReadAll(r)
	require.NoError(t, readErr)
	require.NoError(t, err)

	out := string(captured)
	assert.Contains(t, out, "logging:")
	assert.Contains(t, out, "server:")
	assert.Contains(t, out, "middleware:")
}
