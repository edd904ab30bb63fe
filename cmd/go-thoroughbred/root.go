package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/toozej/go-thoroughbred/pkg/config"
	"github.com/toozej/go-thoroughbred/pkg/man"
	"github.com/toozej/go-thoroughbred/pkg/version"
)

var (
	conf  config.Config
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "go-thoroughbred",
	Short: "Horse racing data extractor",
	Long: `go-thoroughbred fetches a horse's detail page from the Turkish Jockey Club,
classifies its rows into past races, upcoming registrations and cancelled
entries, and extracts the horse's pedigree and career statistics.`,
	Args:             cobra.ExactArgs(0),
	PersistentPreRun: rootCmdPreRun,
	SilenceUsage:     true,
	SilenceErrors:    true,
	Run:              rootCmdRun,
}

func rootCmdRun(cmd *cobra.Command, args []string) {
	if err := cmd.Help(); err != nil {
		log.WithError(err).Error("Failed to show help")
	}
}

func rootCmdPreRun(cmd *cobra.Command, args []string) {
	debug, _ = cmd.Flags().GetBool("debug")
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	conf = config.GetEnvVars(debug)
	if debug {
		conf.Logging.Level = "debug"
	}
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug-level logging")

	rootCmd.AddCommand(
		man.NewManCmd(),
		version.Command(),
	)
}
