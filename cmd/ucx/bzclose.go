package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/privacytools/ucx/internal/engine"
	"github.com/privacytools/ucx/internal/ui"
)

var (
	bzCloseBugID      int64
	bzCloseBugIDsFile string
	bzCloseResolution string
	bzCloseMessage    string
)

var bzCloseCmd = &cobra.Command{
	Use:   "bz-close",
	Short: "Close Bugzilla bugs with a comment",
	Long: `Close the given bugs as RESOLVED with the given resolution and
closing comment. Bugs can be given one at a time with --bug-id or in
bulk with --bug-ids-file (one id per line).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ids, err := resolveBugIDs(bzCloseBugID, bzCloseBugIDsFile)
		if err != nil {
			FatalError("%v", err)
		}
		if bzCloseMessage == "" {
			FatalError("missing required --message")
		}
		cfg := mustBugzillaConfig(true)
		tracker := newTracker(cfg.APIKey, cfg.BaseURL)

		for _, id := range ids {
			if err := tracker.CloseBug(cmd.Context(), id, bzCloseResolution, bzCloseMessage); err != nil {
				FatalError("close bug %d: %v", id, err)
			}
			fmt.Printf("%s closed bug %d\n", ui.RenderPass(ui.IconPass), id)
		}
	},
}

func init() {
	bzCloseCmd.Flags().Int64Var(&bzCloseBugID, "bug-id", 0, "Bug to close")
	bzCloseCmd.Flags().StringVar(&bzCloseBugIDsFile, "bug-ids-file", "", "File with one bug id per line")
	bzCloseCmd.Flags().StringVar(&bzCloseResolution, "resolution", engine.CloseResolution, "Resolution to close with")
	bzCloseCmd.Flags().StringVar(&bzCloseMessage, "message", "", "Closing comment")
}
