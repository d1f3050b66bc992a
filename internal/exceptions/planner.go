package exceptions

import "sort"

// PlanEntries produces the canonical entry set for a bug: the cross
// product of its tracker domains, classifier features, and the two version
// windows. The output is deduplicated and fully ordered by identity key so
// diffs against the store are reproducible. Given valid fields this cannot
// fail; invalid input is rejected upstream by ParseMetadata.
func PlanEntries(fields *StructuredFields, bugID int64) []Entry {
	trackers := dedupe(fields.Trackers)
	features := dedupe(fields.Features)

	entries := make([]Entry, 0, len(trackers)*len(features)*2)
	for _, tracker := range trackers {
		for _, feature := range features {
			for _, window := range []Window{WindowBeforeCutoff, WindowFromCutoff} {
				entries = append(entries, Entry{
					Category:           fields.Category,
					URLPattern:         HostPattern(tracker),
					Feature:            feature,
					Window:             window,
					BugID:              bugID,
					TopLevelURLPattern: fields.TopLevelPattern,
				})
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key() < entries[j].Key()
	})
	return entries
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if seen[token] {
			continue
		}
		seen[token] = true
		out = append(out, token)
	}
	return out
}
