package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/privacytools/ucx/internal/config"
)

var (
	bzInfoProduct   string
	bzInfoComponent string
)

var bzInfoCmd = &cobra.Command{
	Use:   "bz-info",
	Short: "Dump the open site report bugs as JSON",
	Long: `Search Bugzilla for the open site report bugs the auto command
would process and print them as JSON. Useful for checking what a sync
run will see without touching anything.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustBugzillaConfig(false)
		tracker := newTracker(cfg.APIKey, cfg.BaseURL)

		bugs, err := tracker.SearchBugs(cmd.Context(), bzInfoProduct, bzInfoComponent)
		if err != nil {
			FatalError("%v", err)
		}
		data, err := json.MarshalIndent(bugs, "", "  ")
		if err != nil {
			FatalError("%v", err)
		}
		fmt.Println(string(data))
	},
}

func init() {
	bzInfoCmd.Flags().StringVar(&bzInfoProduct, "product", config.DefaultProduct, "Bugzilla product to search")
	bzInfoCmd.Flags().StringVar(&bzInfoComponent, "component", config.DefaultComponent, "Bugzilla component to search")
}
