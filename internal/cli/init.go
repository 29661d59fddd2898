package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// InitResult describes the initialized database.
type InitResult struct {
	Path      string `json:"path"`
	Driver    string `json:"driver"`
	Migration int64  `json:"migration"`
}

// RenderText implements TextRenderer.
func (r InitResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Database %s ready (schema version %d, driver %s)\n", r.Path, r.Migration, r.Driver)
	return err
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and apply migrations",
		Long: `Create the database file if it does not exist and bring its schema
up to date. Other commands do the same on open; init only reports the
result.

Example:
  racetrack init --db league.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
}

func runInit(opts *RootOptions, cmd *cobra.Command) (err error) {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer opts.closeStore(st, &err)

	version, err := st.MigrationVersion()
	if err != nil {
		return WrapExitError(ExitCommandError, "read migration version", err)
	}
	return opts.formatter(cmd).Success(InitResult{
		Path:      opts.Config.Database.Path,
		Driver:    opts.Config.Database.Driver,
		Migration: version,
	})
}
