package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/racetrack/internal/config"
	"github.com/roach88/racetrack/internal/domain"
	"github.com/roach88/racetrack/internal/schema"
	"github.com/roach88/racetrack/internal/store"
	"github.com/roach88/racetrack/internal/transfer"
)

// RootOptions holds global flags and the state PersistentPreRunE builds
// for every command.
type RootOptions struct {
	ConfigFile string

	Config   *config.Config
	Logger   *slog.Logger
	Registry *schema.Registry
}

// NewRootCommand creates the root command for the racetrack CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "racetrack",
		Short: "Export and import the racing league database",
		Long: `racetrack moves the league's entity graph between its database and
portable documents: a zip of CSV files, an XML document or a YAML
document. Imports match records by identity, so importing the same
document twice changes nothing.

Settings come from defaults, racetrack.yaml, RACETRACK_* environment
variables and flags, each overriding the one before.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, used, err := config.Load(opts.ConfigFile, cmd.Flags())
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			reg, err := domain.NewRegistry()
			if err != nil {
				return WrapExitError(ExitCommandError, "schema", err)
			}
			opts.Config = cfg
			opts.Registry = reg
			opts.Logger = newLogger(cmd.ErrOrStderr(), cfg)
			if used != "" {
				opts.Logger.Debug("config file loaded", "path", used)
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	f := cmd.PersistentFlags()
	f.StringVar(&opts.ConfigFile, "config", "", "config file (default: racetrack.yaml in the working directory)")
	f.String("db", config.DefaultDatabasePath, "database file")
	f.String("driver", config.DefaultDriver, "SQLite driver (sqlite3|sqlite)")
	f.String("log-level", config.DefaultLogLevel, "log level (debug|info|warn|error)")
	f.String("log-format", config.DefaultLogFormat, "log format (text|json)")
	f.String("output", config.DefaultOutput, "output format (text|json)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewTypesCommand(opts))

	return cmd
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// formatter returns the output formatter for cmd's stdout.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Config.Output, Writer: cmd.OutOrStdout()}
}

// openStore opens the configured database, applying pending migrations.
func (o *RootOptions) openStore() (*store.SQLite, error) {
	st, err := store.Open(o.Config.Database.Path, o.Registry,
		store.WithDriver(o.Config.Database.Driver),
		store.WithLogger(o.Logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("open database %s", o.Config.Database.Path), err)
	}
	return st, nil
}

// service builds a transfer service over st from the configuration.
func (o *RootOptions) service(st store.Store) *transfer.Service {
	t := o.Config.Transfer
	return transfer.New(o.Registry, st,
		transfer.WithLogger(o.Logger),
		transfer.WithDocumentName(t.DocumentName),
		transfer.WithAllowIncomplete(t.AllowIncomplete),
		transfer.WithParallelism(t.Parallelism),
		transfer.WithMaxPasses(t.MaxPasses))
}

// closeStore closes st, reporting a close failure only when the command
// itself succeeded.
func (o *RootOptions) closeStore(st *store.SQLite, err *error) {
	if cerr := st.Close(); cerr != nil {
		o.Logger.Warn("close database", "error", cerr)
		if *err == nil {
			*err = WrapExitError(ExitCommandError, "close database", cerr)
		}
	}
}
