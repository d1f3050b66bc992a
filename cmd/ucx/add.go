package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/privacytools/ucx/internal/remotesettings"
	"github.com/privacytools/ucx/internal/ui"
)

var addForce bool

var addCmd = &cobra.Command{
	Use:   "add FILE",
	Short: "Add or update exception records from a JSON file",
	Long: `Add the records in FILE (a JSON array) to the collection.

A record matching an existing one by id, or by url pattern, category,
scope, and feature set, updates that record in place instead of
creating a duplicate. A review request is issued after the changes.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig(false)

		data, err := os.ReadFile(args[0])
		if err != nil {
			FatalError("%v", err)
		}
		var incoming []remotesettings.Record
		if err := json.Unmarshal(data, &incoming); err != nil {
			FatalError("parse %s: %v", args[0], err)
		}
		if len(incoming) == 0 {
			fmt.Println(ui.RenderMuted("nothing to add"))
			return
		}

		if !addForce {
			ok, err := ui.Confirm(
				fmt.Sprintf("Add %d record(s) to %s?", len(incoming), cfg.Env),
				"Matching records are updated in place.")
			if err != nil {
				FatalError("%v", err)
			}
			if !ok {
				fmt.Fprintln(os.Stderr, "Cancelled.")
				return
			}
		}

		store := newStore(cfg)
		existing, err := store.ListRecords(cmd.Context())
		if err != nil {
			FatalError("%v", err)
		}

		created, updated := 0, 0
		for _, rec := range incoming {
			if match := findMatch(existing, rec); match != nil {
				rec.ID = match.ID
				updated++
			} else {
				created++
			}
			if _, err := store.CreateRecord(cmd.Context(), rec); err != nil {
				FatalError("write record %s: %v", rec.URLPattern, err)
			}
		}

		if err := store.RequestReview(cmd.Context(), cfg.IsDev()); err != nil {
			FatalError("request review: %v", err)
		}
		fmt.Printf("%s created %d, updated %d\n", ui.RenderPass(ui.IconPass), created, updated)
	},
}

func init() {
	addCmd.Flags().BoolVar(&addForce, "force", false, "Skip the confirmation prompt")
}

// findMatch returns the existing record an incoming one should update:
// same id, or same url pattern, category, scope, and feature set.
func findMatch(existing []remotesettings.Record, rec remotesettings.Record) *remotesettings.Record {
	for i := range existing {
		if rec.ID != "" && existing[i].ID == rec.ID {
			return &existing[i]
		}
	}
	for i := range existing {
		if existing[i].URLPattern == rec.URLPattern &&
			existing[i].Category == rec.Category &&
			existing[i].TopLevelURLPattern == rec.TopLevelURLPattern &&
			sameFeatures(existing[i].ClassifierFeatures, rec.ClassifierFeatures) {
			return &existing[i]
		}
	}
	return nil
}

func sameFeatures(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
