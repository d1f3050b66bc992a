package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/privacytools/ucx/internal/remotesettings"
	"github.com/privacytools/ucx/internal/ui"
)

var (
	listJSON      bool
	listPublished bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the exception records in the collection",
	Long: `List the records in the url-classifier-exceptions collection.

By default the workspace (unreviewed) records are shown; --published
reads the records Firefox clients actually receive for the target
environment instead.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig(false)

		var records []remotesettings.Record
		var err error
		if listPublished {
			records, err = remotesettings.FetchPublished(cmd.Context(), http.DefaultClient, cfg.PublishedURL)
		} else {
			records, err = newStore(cfg).ListRecords(cmd.Context())
		}
		if err != nil {
			FatalError("%v", err)
		}

		if listJSON {
			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				FatalError("%v", err)
			}
			fmt.Println(string(data))
			return
		}
		printRecords(records)
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listPublished, "published", false, "Read the published records instead of the workspace")
}

func printRecords(records []remotesettings.Record) {
	if len(records) == 0 {
		fmt.Println(ui.RenderMuted("no records"))
		return
	}
	for _, rec := range records {
		scope := "global"
		if rec.TopLevelURLPattern != "" {
			scope = rec.TopLevelURLPattern
		}
		fmt.Printf("%s  %s\n", ui.RenderAccent(rec.ID), rec.URLPattern)
		fmt.Printf("    %s\n", ui.RenderMuted(fmt.Sprintf("category=%s scope=%s features=%s",
			rec.Category, scope, strings.Join(rec.ClassifierFeatures, ","))))
		if len(rec.BugIDs) > 0 {
			fmt.Printf("    %s\n", ui.RenderMuted("bugs: "+strings.Join(rec.BugIDs, ", ")))
		}
		if rec.FilterExpression != "" {
			fmt.Printf("    %s\n", ui.RenderMuted("filter: "+rec.FilterExpression))
		}
	}
	fmt.Printf("%d record(s)\n", len(records))
}
