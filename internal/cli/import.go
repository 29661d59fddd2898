package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/racetrack/internal/config"
	"github.com/roach88/racetrack/internal/engine"
	"github.com/roach88/racetrack/internal/transfer"
)

// ImportResult summarizes a finished import.
type ImportResult struct {
	Format       string        `json:"format,omitempty"`
	File         string        `json:"file,omitempty"`
	Created      int           `json:"created"`
	Skipped      int           `json:"skipped"`
	Deferred     int           `json:"deferred"`
	LateAssigned int           `json:"late_assigned"`
	LinksAdded   int           `json:"links_added"`
	LinksPresent int           `json:"links_present"`
	Passes       int           `json:"passes"`
	Types        []TypeSummary `json:"types"`
}

// TypeSummary counts the records of one type.
type TypeSummary struct {
	Type    string `json:"type"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
}

func newImportResult(format, file string, r *engine.Report) ImportResult {
	res := ImportResult{
		Format:       format,
		File:         file,
		Created:      r.Created,
		Skipped:      r.Skipped,
		Deferred:     r.Deferred,
		LateAssigned: r.LateAssigned,
		LinksAdded:   r.LinksAdded,
		LinksPresent: r.LinksPresent,
		Passes:       r.Passes,
		Types:        make([]TypeSummary, 0, len(r.Types)),
	}
	for _, tc := range r.Types {
		res.Types = append(res.Types, TypeSummary{Type: tc.Type, Created: tc.Created, Skipped: tc.Skipped})
	}
	return res
}

// RenderText implements TextRenderer.
func (r ImportResult) RenderText(w io.Writer) error {
	if r.File != "" {
		if _, err := fmt.Fprintf(w, "Imported %s (%s)\n", r.File, r.Format); err != nil {
			return err
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Type", "Created", "Skipped"})
	for _, tc := range r.Types {
		t.AppendRow(table.Row{tc.Type, tc.Created, tc.Skipped})
	}
	t.AppendFooter(table.Row{"Total", r.Created, r.Skipped})
	t.Render()

	_, err := fmt.Fprintf(w, "Links: %d added, %d already present\nDeferred: %d, late assignments: %d, passes: %d\n",
		r.LinksAdded, r.LinksPresent, r.Deferred, r.LateAssigned, r.Passes)
	return err
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a document into the database",
		Long: `Import a document written by export, or by hand in the same layout.
Records whose identity already exists are left alone, so importing the
same document again creates nothing. Use - to read stdin.

The whole document is checked before anything is written. Without
--format, the format follows the file extension.

Examples:
  racetrack import league.zip
  racetrack import --format xml - < league.xml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, cmd, args[0])
		},
	}

	cmd.Flags().String("format", config.DefaultFormat, "document format (csv|xml|yaml)")
	cmd.Flags().String("document-name", config.DefaultDocumentName, "root element of xml and yaml documents")
	cmd.Flags().Int("max-passes", 0, "bound on reference resolution passes (0: no bound)")

	return cmd
}

func runImport(opts *RootOptions, cmd *cobra.Command, path string) (err error) {
	format := opts.Config.Transfer.Format
	if path != "-" && !cmd.Flags().Changed("format") {
		if f, ok := transfer.FormatForPath(path); ok {
			format = f
		}
	}

	var in io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "open input file", err)
		}
		defer f.Close()
		in = f
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer opts.closeStore(st, &err)

	out := opts.formatter(cmd)
	report, err := opts.service(st).Import(cmd.Context(), in, format)
	if err != nil {
		if report != nil {
			opts.Logger.Info("partial import",
				"created", report.Created,
				"links_added", report.LinksAdded)
		}
		return out.Failure("import failed", err)
	}
	file := path
	if path == "-" {
		file = ""
	}
	return out.Success(newImportResult(format, file, report))
}
