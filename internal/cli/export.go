package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/racetrack/internal/config"
	"github.com/roach88/racetrack/internal/transfer"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Out   string
	Types []string
}

// ExportResult summarizes a finished export.
type ExportResult struct {
	Format   string   `json:"format"`
	File     string   `json:"file"`
	Records  int      `json:"records"`
	Links    int      `json:"links"`
	Warnings []string `json:"warnings,omitempty"`
}

// RenderText implements TextRenderer.
func (r ExportResult) RenderText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Exported %d records and %d links to %s (%s)\n", r.Records, r.Links, r.File, r.Format); err != nil {
		return err
	}
	for _, warning := range r.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}
	return nil
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the database to a document",
		Long: `Export entities to a zip of CSV files, an XML document or a YAML
document. Without --type every registered type is exported. The types
named with --type are completed with every type they reach unless
--allow-incomplete is set.

Without --out the document is written to stdout. With --out and no
--format, the format follows the file extension.

Examples:
  racetrack export --out league.zip
  racetrack export --type Team --format yaml > teams.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().StringArrayVar(&opts.Types, "type", nil, "type to export (repeatable)")
	cmd.Flags().String("format", config.DefaultFormat, "document format (csv|xml|yaml)")
	cmd.Flags().String("document-name", config.DefaultDocumentName, "root element of xml and yaml documents")
	cmd.Flags().Bool("allow-incomplete", false, "export only the named types, not their closure")
	cmd.Flags().Int("parallelism", 1, "types walked concurrently")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) (err error) {
	toStdout := opts.Out == "" || opts.Out == "-"
	format := opts.Config.Transfer.Format
	if !toStdout && !cmd.Flags().Changed("format") {
		if f, ok := transfer.FormatForPath(opts.Out); ok {
			format = f
		}
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer opts.closeStore(st, &err)
	svc := opts.service(st)

	if toStdout {
		// The document owns stdout; the summary goes to the log.
		if _, err = svc.Export(cmd.Context(), cmd.OutOrStdout(), format, opts.Types...); err != nil {
			return WrapExitError(ExitFailure, "export failed", err)
		}
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(opts.Out), ".racetrack-export-*")
	if err != nil {
		return WrapExitError(ExitCommandError, "create output file", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	out := opts.formatter(cmd)
	ds, err := svc.Export(cmd.Context(), tmp, format, opts.Types...)
	if err != nil {
		return out.Failure("export failed", err)
	}
	if err := tmp.Close(); err != nil {
		return WrapExitError(ExitCommandError, "write output file", err)
	}
	if err := os.Rename(tmp.Name(), opts.Out); err != nil {
		return WrapExitError(ExitCommandError, "write output file", err)
	}

	return out.Success(ExportResult{
		Format:   format,
		File:     opts.Out,
		Records:  ds.RecordCount(),
		Links:    ds.LinkCount(),
		Warnings: ds.Warnings,
	})
}
