package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"bannerssb/lib/banner"
	"bannerssb/lib/restyutil"

	"github.com/spf13/cobra"
)

var (
	schoolKey   string
	schoolsFile string
	jsonOutput  bool
	dumpDir     string
	cloudflare  bool
	verbose     bool
)

var client *banner.Client

var rootCmd = &cobra.Command{
	Use:          "banner-cli",
	Short:        "banner-cli queries the class search of Banner SSB registration portals.",
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&schoolKey, "school", "s", "temple", "The school to query, see the schools command.")
	flags.StringVar(&schoolsFile, "schools-file", "", "A json5 school table merged over the built in one.")
	flags.BoolVar(&jsonOutput, "json", false, "Print results as json instead of a table.")
	flags.StringVar(&dumpDir, "dump", "", "Write every raw http exchange to this directory.")
	flags.BoolVar(&cloudflare, "cloudflare", false, "Route requests through the cloudflare bypass transport.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log at debug level.")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}
}

func loadCatalog() (*banner.Catalog, error) {
	if schoolsFile == "" {
		return banner.DefaultCatalog()
	}
	return banner.LoadCatalog(schoolsFile)
}

// withClient creates the portal client before the command runs.
func withClient(cmd *cobra.Command) *cobra.Command {
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}

		opts := banner.ClientOptions{
			Catalog:          catalog,
			CloudflareBypass: cloudflare,
		}
		if dumpDir != "" {
			output, err := restyutil.NewFilesystemOutput(dumpDir)
			if err != nil {
				return fmt.Errorf("failed to create dump directory: %w", err)
			}
			opts.Dump = output
		}

		client, err = banner.NewClient(schoolKey, opts)
		return err
	}
	return cmd
}

// ExecuteContext runs the cli and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
