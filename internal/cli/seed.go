package cli

import (
	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample league into the database",
		Long: `Load a small sample league (one season, two teams, three drivers,
two races and their finishes) through the importer. Entities that
already exist are left alone, so seeding twice creates nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, cmd)
		},
	}
}

func runSeed(opts *RootOptions, cmd *cobra.Command) (err error) {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer opts.closeStore(st, &err)

	out := opts.formatter(cmd)
	report, err := opts.service(st).Seed(cmd.Context())
	if err != nil {
		return out.Failure("seed failed", err)
	}
	return out.Success(newImportResult("", "", report))
}
