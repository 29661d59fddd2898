package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "ok.yaml", `
name: ok
description: "loads"
format: xml
document: "<racetrack/>"
expect:
  report: {created: 0}
`)
	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", sc.Name)
	assert.Equal(t, "xml", sc.format())
	assert.Equal(t, map[string]int{"created": 0}, sc.Expect.Report)
}

func TestLoadScenarioDefaultsToYAML(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "ok.yaml", "name: ok\ndescription: d\ndocument: \"racetrack: {}\"\n")
	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml", sc.format())
}

func TestLoadScenarioErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing name", "description: d\ndocument: x\n", "name is required"},
		{"missing description", "name: n\ndocument: x\n", "description is required"},
		{"missing document", "name: n\ndescription: d\n", "document is required"},
		{"unknown field", "name: n\ndescription: d\ndocument: x\nexpects: {}\n", "failed to parse YAML"},
		{"bad format", "name: n\ndescription: d\ndocument: x\nformat: csv\n", `format "csv"`},
		{"empty setup", "name: n\ndescription: d\ndocument: x\nsetup: [\"\"]\n", "setup[0]: document is empty"},
		{"unknown code", "name: n\ndescription: d\ndocument: x\nexpect: {error: OOPS}\n", `unknown error code "OOPS"`},
		{"message without error", "name: n\ndescription: d\ndocument: x\nexpect: {message: m}\n", "require expect.error"},
		{"unknown counter", "name: n\ndescription: d\ndocument: x\nexpect: {report: {made: 1}}\n", `unknown counter "made"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), "s.yaml", tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenariosRejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", "name: same\ndescription: d\ndocument: x\n")
	writeScenario(t, dir, "b.yaml", "name: same\ndescription: d\ndocument: x\n")

	_, err := LoadScenarios(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario "same" is defined in`)
}
