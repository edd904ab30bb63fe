package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/toozej/go-thoroughbred/internal/types"
	"github.com/toozej/go-thoroughbred/pkg/logging"
)

var errAllFailed = errors.New("every horse in the batch failed")

var (
	batchFile        string
	batchDelay       time.Duration
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch [horse-id...]",
	Short: "Fetch and store many horses",
	Long: `Fetch many horses one page at a time and replace each one's stored records.
Requests are spaced by --delay to stay polite to the source site.

Examples:
  go-thoroughbred batch 12345 67890
  go-thoroughbred batch --file horses.txt --delay 5s`,
	RunE: runBatchCommand,
}

// batchOptions controls pacing of a batch run.
type batchOptions struct {
	Delay       time.Duration
	Concurrency int
}

// batchResult is the outcome for one horse.
type batchResult struct {
	ID            string
	Races         int
	Registrations int
	Err           error
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	ids, err := collectIDs(args, batchFile)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no horse ids given; pass ids as arguments or use --file")
	}

	opts := batchOptions{Delay: conf.Batch.Delay, Concurrency: conf.Batch.Concurrency}
	if cmd.Flags().Changed("delay") {
		opts.Delay = batchDelay
	}
	if cmd.Flags().Changed("concurrency") {
		opts.Concurrency = batchConcurrency
	}

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

	results := runBatch(ctx, a.scraper, a.store, ids, opts, a.logger)
	printBatchResults(cmd.OutOrStdout(), results)
	if allFailed(results) {
		return errAllFailed
	}
	return nil
}

// runBatch fetches and stores every id. At most opts.Concurrency fetches run
// at once and successive fetches start at least opts.Delay apart. A failure
// only affects its own horse.
func runBatch(ctx context.Context, fetcher types.HorseDetailFetcher, store types.HorseStore,
	ids []string, opts batchOptions, logger *logging.Logger) []batchResult {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	results := make([]batchResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, id := range ids {
		results[i].ID = id
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				results[i].Err = err
				return nil
			}

			detail, err := fetcher.FetchHorseDetail(gctx, id)
			if err == nil {
				err = store.ReplaceHorseDetail(gctx, id, detail)
			}
			if err != nil {
				results[i].Err = err
				logger.WithContext(gctx).WithFields(map[string]interface{}{
					"component":   "cli",
					"operation":   "batch",
					"external_id": id,
				}).WithError(err).Warn("Horse failed in batch")
				return nil
			}

			results[i].Races = len(detail.Races)
			results[i].Registrations = len(detail.Registrations)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func allFailed(results []batchResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.Err == nil {
			return false
		}
	}
	return true
}

func printBatchResults(w io.Writer, results []batchResult) {
	succeeded := 0
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "[FAILED] %s - %v\n", r.ID, r.Err)
			continue
		}
		succeeded++
		fmt.Fprintf(w, "[OK] %s - %d races, %d registrations\n", r.ID, r.Races, r.Registrations)
	}
	fmt.Fprintf(w, "\n%d of %d horses stored\n", succeeded, len(results))
}

// collectIDs merges argument ids with ids read from file, one per line.
// Blank lines and lines starting with # are ignored; duplicates keep their
// first position.
func collectIDs(args []string, file string) ([]string, error) {
	ids := append([]string{}, args...)
	if file != "" {
		f, err := os.Open(file) // #nosec G304 -- operator supplied path
		if err != nil {
			return nil, fmt.Errorf("failed to open id file: %w", err)
		}
		defer f.Close()

		fromFile, err := readIDs(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read id file: %w", err)
		}
		ids = append(ids, fromFile...)
	}

	seen := make(map[string]bool, len(ids))
	unique := ids[:0]
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	return unique, nil
}

func readIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, scanner.Err()
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "File with one horse id per line")
	batchCmd.Flags().DurationVar(&batchDelay, "delay", 3*time.Second, "Minimum delay between fetches")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 1, "Maximum concurrent fetches")

	rootCmd.AddCommand(batchCmd)
}
