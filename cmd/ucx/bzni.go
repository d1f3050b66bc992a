package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/privacytools/ucx/internal/ui"
)

var (
	bzNIBugID      int64
	bzNIBugIDsFile string
	bzNIMessage    string
	bzNIRequestee  string
)

var bzNICmd = &cobra.Command{
	Use:   "bz-ni",
	Short: "Set a needinfo flag on Bugzilla bugs",
	Long: `Comment on the given bugs and set a needinfo flag for the
requestee. Bugs can be given one at a time with --bug-id or in bulk
with --bug-ids-file (one id per line).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ids, err := resolveBugIDs(bzNIBugID, bzNIBugIDsFile)
		if err != nil {
			FatalError("%v", err)
		}
		if bzNIMessage == "" {
			FatalError("missing required --message")
		}
		if bzNIRequestee == "" {
			FatalError("missing required --requestee")
		}
		cfg := mustBugzillaConfig(true)
		tracker := newTracker(cfg.APIKey, cfg.BaseURL)

		for _, id := range ids {
			if err := tracker.NeedInfo(cmd.Context(), id, bzNIMessage, bzNIRequestee); err != nil {
				FatalError("needinfo bug %d: %v", id, err)
			}
			fmt.Printf("%s needinfo set on bug %d\n", ui.RenderPass(ui.IconPass), id)
		}
	},
}

func init() {
	bzNICmd.Flags().Int64Var(&bzNIBugID, "bug-id", 0, "Bug to flag")
	bzNICmd.Flags().StringVar(&bzNIBugIDsFile, "bug-ids-file", "", "File with one bug id per line")
	bzNICmd.Flags().StringVar(&bzNIMessage, "message", "", "Comment to post with the flag")
	bzNICmd.Flags().StringVar(&bzNIRequestee, "requestee", "", "Bugzilla account to request info from")
}
