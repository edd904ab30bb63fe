package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	fetchJSON bool
	fetchSave bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <horse-id>",
	Short: "Fetch one horse's races, registrations and pedigree",
	Long: `Fetch a horse's detail page, classify its rows and print the result.

Examples:
  # Print a summary
  go-thoroughbred fetch 12345

  # Print JSON and persist through the configured store
  go-thoroughbred fetch 12345 --json --save`,
	Args: cobra.ExactArgs(1),
	RunE: runFetchCommand,
}

func runFetchCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, conf, fetchSave)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.WithComponent("cli").WithError(err).Warn("Failed to release resources")
		}
	}()

	id := args[0]
	detail, err := a.scraper.FetchHorseDetail(ctx, id)
	if err != nil {
		return err
	}

	if fetchSave {
		if err := a.store.ReplaceHorseDetail(ctx, id, detail); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if fetchJSON {
		return writeJSON(out, detail)
	}
	if err := printDetail(out, detail); err != nil {
		return err
	}
	if fetchSave {
		fmt.Fprintf(out, "\nSaved %d races and %d registrations.\n", len(detail.Races), len(detail.Registrations))
	}
	return nil
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "Print the result as JSON")
	fetchCmd.Flags().BoolVarP(&fetchSave, "save", "s", false, "Persist the result through the configured store")

	rootCmd.AddCommand(fetchCmd)
}
