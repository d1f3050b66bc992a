// ucx manages Enhanced Tracking Protection (ETP) exceptions: it syncs
// diagnosed Bugzilla site report bugs into the url-classifier-exceptions
// remote-settings collection and maintains the collection directly.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/privacytools/ucx/internal/bugzilla"
	"github.com/privacytools/ucx/internal/config"
	"github.com/privacytools/ucx/internal/remotesettings"
	"github.com/privacytools/ucx/internal/ui"
)

var (
	serverFlag         string
	serverLocationFlag string
	authFlag           string
	noColorFlag        bool
)

var rootCmd = &cobra.Command{
	Use:   "ucx",
	Short: "Manage Enhanced Tracking Protection exceptions",
	Long: `ucx reconciles diagnosed ETP site report bugs with the
url-classifier-exceptions remote-settings collection.

The auto command is the main entry point: it reads open site report
bugs, derives the exception records each one needs, applies the
difference to the collection, and (on prod) closes fully-synced bugs.
Re-running is always safe.

The remaining commands are manual maintenance tools for the same
collection and for the Bugzilla side of the workflow.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag || os.Getenv("NO_COLOR") != "" {
			ui.DisableColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Remote-settings target: dev, stage, or prod")
	rootCmd.PersistentFlags().StringVar(&serverLocationFlag, "server-location", "", "Override the remote-settings writer URL")
	rootCmd.PersistentFlags().StringVar(&authFlag, "auth", "", "Remote-settings auth token (default: $UCX_AUTH_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(autoCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(bzInfoCmd)
	rootCmd.AddCommand(bzCloseCmd)
	rootCmd.AddCommand(bzNICmd)
}

// mustConfig resolves the full configuration or exits.
func mustConfig(requireBugzillaKey bool) *config.Config {
	cfg, err := config.Load(config.Options{
		Server:             serverFlag,
		ServerLocation:     serverLocationFlag,
		AuthToken:          authFlag,
		RequireBugzillaKey: requireBugzillaKey,
	})
	if err != nil {
		FatalError("%v", err)
	}
	return cfg
}

// mustBugzillaConfig resolves the Bugzilla-only configuration or exits.
func mustBugzillaConfig(requireKey bool) *config.BugzillaConfig {
	cfg, err := config.LoadBugzilla(requireKey)
	if err != nil {
		FatalError("%v", err)
	}
	return cfg
}

func newStore(cfg *config.Config) *remotesettings.Client {
	return remotesettings.NewClient(cfg.ServerLocation, cfg.AuthToken, config.Bucket, config.Collection)
}

func newTracker(apiKey, baseURL string) *bugzilla.Client {
	client := bugzilla.NewClient(apiKey)
	if baseURL != "" {
		client = client.WithBaseURL(baseURL)
	}
	return client
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		FatalError("%v", err)
	}
}
