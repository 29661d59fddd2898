package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	dir := workdir(t)

	stdout, _, err := execute(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "league.db ready (schema version")
	assert.FileExists(t, filepath.Join(dir, "league.db"))

	stdout, _, err = execute(t, dir, "--output", "json", "init")
	require.NoError(t, err)
	var res InitResult
	resp := decode(t, stdout, &res)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, filepath.Join(dir, "league.db"), res.Path)
	assert.Equal(t, "sqlite3", res.Driver)
	assert.Positive(t, res.Migration)
}

func TestSeedTwice(t *testing.T) {
	dir := workdir(t)

	stdout, _, err := execute(t, dir, "--output", "json", "seed")
	require.NoError(t, err)
	var first ImportResult
	decode(t, stdout, &first)
	assert.Equal(t, 12, first.Created)
	assert.Zero(t, first.Skipped)

	stdout, _, err = execute(t, dir, "--output", "json", "seed")
	require.NoError(t, err)
	var second ImportResult
	decode(t, stdout, &second)
	assert.Zero(t, second.Created)
	assert.Equal(t, 12, second.Skipped)
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, file := range []string{"league.zip", "league.xml", "league.yaml"} {
		t.Run(file, func(t *testing.T) {
			src := workdir(t)
			_, _, err := execute(t, src, "seed")
			require.NoError(t, err)

			out := filepath.Join(src, file)
			stdout, _, err := execute(t, src, "--output", "json", "export", "-o", out)
			require.NoError(t, err)
			var exported ExportResult
			decode(t, stdout, &exported)
			assert.Equal(t, out, exported.File)
			assert.Equal(t, 12, exported.Records)
			assert.Empty(t, exported.Warnings)
			assert.FileExists(t, out)

			dst := t.TempDir()
			stdout, _, err = execute(t, dst, "--output", "json", "import", out)
			require.NoError(t, err)
			var imported ImportResult
			decode(t, stdout, &imported)
			assert.Equal(t, exported.Format, imported.Format)
			assert.Equal(t, 12, imported.Created)
			assert.Len(t, imported.Types, 5)

			stdout, _, err = execute(t, dst, "--output", "json", "import", out)
			require.NoError(t, err)
			var again ImportResult
			decode(t, stdout, &again)
			assert.Zero(t, again.Created)
			assert.Equal(t, 12, again.Skipped)
			assert.Zero(t, again.LinksAdded)
		})
	}
}

func TestExportFormatFollowsExtension(t *testing.T) {
	dir := workdir(t)
	_, _, err := execute(t, dir, "seed")
	require.NoError(t, err)

	out := filepath.Join(dir, "league.xml")
	stdout, _, err := execute(t, dir, "export", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Exported 12 records")
	assert.Contains(t, stdout, "(xml)")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))

	// An explicit format wins over the extension.
	out = filepath.Join(dir, "league.txt")
	_, _, err = execute(t, dir, "export", "--format", "yaml", "-o", out)
	require.NoError(t, err)
	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "racetrack:")
}

func TestExportToStdout(t *testing.T) {
	dir := workdir(t)
	_, _, err := execute(t, dir, "seed")
	require.NoError(t, err)

	stdout, _, err := execute(t, dir, "export", "--format", "yaml", "--type", "Team", "--allow-incomplete")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Johnson")
	assert.NotContains(t, stdout, "Dawn Matroi")
	assert.NotContains(t, stdout, "Exported")
}

func TestExportUnknownType(t *testing.T) {
	dir := workdir(t)
	_, _, err := execute(t, dir, "export", "-o", filepath.Join(dir, "out.zip"), "--type", "Pit")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.NoFileExists(t, filepath.Join(dir, "out.zip"))
}

func TestImportReportText(t *testing.T) {
	dir := workdir(t)
	doc := filepath.Join(dir, "teams.yaml")
	require.NoError(t, os.WriteFile(doc, []byte(`racetrack:
  TeamList:
    - Team:
        tag: Y
        name: Johnson
`), 0o644))

	stdout, _, err := execute(t, dir, "import", doc)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Imported "+doc+" (yaml)")
	assert.Contains(t, stdout, "Team")
	assert.Contains(t, stdout, "TOTAL", "go-pretty upper-cases footers")
	assert.Contains(t, stdout, "Links: 0 added, 0 already present")
}

func TestImportFailures(t *testing.T) {
	dir := workdir(t)
	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte("<racetrack><TeamList>"), 0o644))

	t.Run("malformed document", func(t *testing.T) {
		stdout, _, err := execute(t, dir, "--output", "json", "import", bad)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		resp := decode(t, stdout, nil)
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "FORMAT", resp.Error.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := execute(t, dir, "import", filepath.Join(dir, "absent.zip"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := execute(t, dir, "import", "--format", "json", bad)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err), "rejected by configuration")
	})
}

func TestTypes(t *testing.T) {
	dir := workdir(t)

	stdout, _, err := execute(t, dir, "types")
	require.NoError(t, err)
	assert.Contains(t, stdout, "drivers -> Driver (owned)")
	assert.Contains(t, stdout, "teams -> Team (owning)")
	assert.Contains(t, stdout, "team -> Team")

	stdout, _, err = execute(t, dir, "--output", "json", "types")
	require.NoError(t, err)
	var list []TypeInfo
	decode(t, stdout, &list)
	require.Len(t, list, 5)
	assert.Equal(t, "Season", list[0].Name)

	byName := map[string]TypeInfo{}
	for _, ti := range list {
		byName[ti.Name] = ti
	}
	assert.Equal(t, []string{"season", "raceNumber"}, byName["Race"].Identity)
	assert.Contains(t, byName["Finish"].Columns, "race: season: name")
}
