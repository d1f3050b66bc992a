package exceptions

import "github.com/privacytools/ucx/internal/remotesettings"

// PruneGloballyExempt drops trackers that a global blocking exception
// already covers: creating a site-scoped entry for them would be
// redundant. Returns the trackers to keep and the ones pruned.
func PruneGloballyExempt(trackers []string, remote []remotesettings.Record) (kept, pruned []string) {
	for _, tracker := range trackers {
		if coveredByGlobal(tracker, remote) {
			pruned = append(pruned, tracker)
		} else {
			kept = append(kept, tracker)
		}
	}
	return kept, pruned
}

func coveredByGlobal(tracker string, remote []remotesettings.Record) bool {
	pattern := HostPattern(tracker)
	for i := range remote {
		rec := &remote[i]
		if rec.IsGlobal() && rec.IsBlocking() && rec.URLPattern == pattern {
			return true
		}
	}
	return false
}
