package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/privacytools/ucx/internal/ui"
)

var (
	removeAll   bool
	removeForce bool
)

var removeCmd = &cobra.Command{
	Use:   "remove [ID...]",
	Short: "Remove exception records from the collection",
	Long: `Remove the records with the given ids, or every record with --all.

A review request is issued after the removals.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && !removeAll {
			FatalError("nothing to remove: pass record ids or --all")
		}
		if len(args) > 0 && removeAll {
			FatalError("--all cannot be combined with explicit ids")
		}
		cfg := mustConfig(false)
		store := newStore(cfg)

		ids := args
		if removeAll {
			records, err := store.ListRecords(cmd.Context())
			if err != nil {
				FatalError("%v", err)
			}
			for _, rec := range records {
				ids = append(ids, rec.ID)
			}
		}
		if len(ids) == 0 {
			fmt.Println(ui.RenderMuted("no records to remove"))
			return
		}

		if !removeForce {
			ok, err := ui.Confirm(
				fmt.Sprintf("Remove %d record(s) from %s?", len(ids), cfg.Env),
				"Removal takes effect once the review is approved.")
			if err != nil {
				FatalError("%v", err)
			}
			if !ok {
				fmt.Fprintln(os.Stderr, "Cancelled.")
				return
			}
		}

		for _, id := range ids {
			if err := store.DeleteRecord(cmd.Context(), id); err != nil {
				FatalError("remove record %s: %v", id, err)
			}
		}
		if err := store.RequestReview(cmd.Context(), cfg.IsDev()); err != nil {
			FatalError("request review: %v", err)
		}
		fmt.Printf("%s removed %d record(s)\n", ui.RenderPass(ui.IconPass), len(ids))
	},
}

func init() {
	removeCmd.Flags().BoolVar(&removeAll, "all", false, "Remove every record in the collection")
	removeCmd.Flags().BoolVar(&removeForce, "force", false, "Skip the confirmation prompt")
}
