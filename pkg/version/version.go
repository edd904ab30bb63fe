// Package version reports build metadata injected with -ldflags.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time, e.g.
// -ldflags "-X github.com/toozej/go-thoroughbred/pkg/version.Version=v1.0.0"
var (
	Version = "local"
	Commit  = ""
	Branch  = ""
	BuiltAt = ""
	Builder = ""
)

// Info is the version information printed by the version command.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Branch    string `json:"branch,omitempty"`
	BuiltAt   string `json:"built_at,omitempty"`
	Builder   string `json:"builder,omitempty"`
	GoVersion string `json:"go_version"`
}

// Get returns the current build's version information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		Branch:    Branch,
		BuiltAt:   BuiltAt,
		Builder:   Builder,
		GoVersion: runtime.Version(),
	}
}

// Command returns the version sub-command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of go-thoroughbred",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := json.MarshalIndent(Get(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode version: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
