package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/privacytools/ucx/internal/engine"
)

// outcomeIcon maps a bug outcome to its status icon and style.
func outcomeIcon(o engine.Outcome) (string, func(string) string) {
	switch o {
	case engine.OutcomeApplied, engine.OutcomeAppliedClosed:
		return IconPass, RenderPass
	case engine.OutcomeFailed:
		return IconFail, RenderFail
	case engine.OutcomeSkippedConflict:
		return IconWarn, RenderWarn
	default:
		return IconSkip, RenderMuted
	}
}

// PrintRun writes the per-bug report and summary for a sync run.
func PrintRun(w io.Writer, run *engine.RunResult, dryRun bool) {
	title := "Sync results"
	if dryRun {
		title = "Sync plan (dry run)"
	}
	fmt.Fprintln(w, HeaderStyle.Render(title))
	fmt.Fprintln(w, RenderMuted(SeparatorLight))

	for _, res := range run.Results {
		icon, render := outcomeIcon(res.Outcome)
		line := fmt.Sprintf("%s bug %d  %s", icon, res.BugID, res.Outcome)
		fmt.Fprintln(w, render(line))
		if res.Summary != "" {
			fmt.Fprintf(w, "    %s\n", RenderMuted(res.Summary))
		}
		if res.Reason != "" {
			fmt.Fprintf(w, "    %s\n", RenderMuted(res.Reason))
		}
		for _, c := range res.Conflicts {
			fmt.Fprintf(w, "    %s\n", RenderWarn(fmt.Sprintf("conflict: %s held by record %s (bugs %s)",
				c.Key, c.RecordID, strings.Join(c.BugIDs, ","))))
		}
	}

	fmt.Fprintln(w, RenderMuted(SeparatorLight))
	fmt.Fprintln(w, summaryLine(run))
}

// summaryLine renders the outcome tally, stable across runs.
func summaryLine(run *engine.RunResult) string {
	counts := run.Counts()
	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, string(outcome))
	}
	sort.Strings(outcomes)

	parts := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		parts = append(parts, fmt.Sprintf("%s: %d", outcome, counts[engine.Outcome(outcome)]))
	}
	if len(parts) == 0 {
		return RenderMuted("no bugs to process")
	}
	return fmt.Sprintf("%d bug(s): %s", len(run.Results), strings.Join(parts, ", "))
}
