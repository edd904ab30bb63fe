package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/toozej/go-thoroughbred/internal/services/search"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Fuzzy search stored horses by name",
	Long: `Search the configured store for horses whose names match the query.
Only horses saved with fetch --save, batch or the refresh endpoint are found.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearchCommand,
}

func runSearchCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, conf, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.WithComponent("cli").WithError(err).Warn("Failed to release resources")
		}
	}()

	if strings.EqualFold(conf.Store.Driver, "memory") || conf.Store.Driver == "" {
		a.logger.WithComponent("cli").Warn("Searching the in-memory store, which is empty in a fresh process")
	}

	searcher := search.NewFuzzyHorseSearcher(a.store, a.logger.Logger)
	matches, err := searcher.Search(ctx, strings.Join(args, " "), searchLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		return writeJSON(out, matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(out, "No matching horses")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRACES\tCONFIDENCE")
	for _, m := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\n", m.Horse.ExternalID, m.Horse.Name, m.Horse.RaceCount, m.Confidence)
	}
	return tw.Flush()
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", search.DefaultLimit, "Maximum number of matches")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print matches as JSON")

	rootCmd.AddCommand(searchCmd)
}
