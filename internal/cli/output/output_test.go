package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"", FormatTable, false},
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{" table ", FormatTable, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	err := PrintJSON(&buf, map[string]any{"name": "gantry", "port": 9000})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"name": "gantry"`)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	err := PrintYAML(&buf, struct {
		Name string `yaml:"name"`
		Port int    `yaml:"port"`
	}{Name: "gantry", Port: 9000})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "name: gantry")
	assert.Contains(t, buf.String(), "port: 9000")
}

func TestPrintTable(t *testing.T) {
	data := NewTableData("Method", "Path")
	data.AddRow("GET", "/ping")
	data.AddRow("POST", "/login")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, data))

	out := buf.String()
	assert.Contains(t, out, "METHOD")
	assert.Contains(t, out, "/ping")
	assert.Contains(t, out, "/login")
}

func TestSimpleTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SimpleTable(&buf, [][2]string{
		{"Status", "running"},
		{"Uptime", "3h2m"},
	}))

	out := buf.String()
	assert.Contains(t, out, "Status")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "3h2m")
}
