// Package exceptions implements the reconciliation core: parsing bug
// metadata into structured fields, planning the canonical exception entry
// set a bug requires, and diffing that set against the remote store.
//
// Everything in this package is pure; all I/O lives in the bugzilla,
// remotesettings, and engine packages.
package exceptions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/privacytools/ucx/internal/remotesettings"
)

// Category classifies how essential an exception is. Baseline exceptions
// fix site breakage every user hits; convenience exceptions trade some
// protection for functionality.
type Category string

const (
	CategoryBaseline    Category = "baseline"
	CategoryConvenience Category = "convenience"
)

// CutoffRelease is the client release that changed exception semantics.
// Every requirement is split into one entry on each side of this boundary.
const CutoffRelease = "142.0a1"

// Window is one of the two version ranges an entry applies to. The two
// windows are contiguous and non-overlapping and together cover all
// versions: [0, cutoff) and [cutoff, ∞).
type Window string

const (
	WindowBeforeCutoff Window = "before-cutoff"
	WindowFromCutoff   Window = "from-cutoff"
)

// FilterExpression returns the remote-settings filter expression that
// scopes a record to this window.
func (w Window) FilterExpression() string {
	switch w {
	case WindowBeforeCutoff:
		return fmt.Sprintf("env.version|versionCompare(%q) < 0", CutoffRelease)
	case WindowFromCutoff:
		return fmt.Sprintf("env.version|versionCompare(%q) >= 0", CutoffRelease)
	}
	return ""
}

// WindowFromFilterExpression maps a record's filter expression back to its
// window. Records without a recognized expression (legacy and global
// entries) return the empty window, which never matches a planned entry.
func WindowFromFilterExpression(expr string) Window {
	switch expr {
	case WindowBeforeCutoff.FilterExpression():
		return WindowBeforeCutoff
	case WindowFromCutoff.FilterExpression():
		return WindowFromCutoff
	}
	return ""
}

// StructuredFields is the parsed, validated form of a bug's annotations.
type StructuredFields struct {
	Category Category
	Trackers []string // bare hostnames from trackers-blocked:
	Features []string // classifier feature names
	// TopLevelPattern scopes entries to the reported site, derived from
	// the bug's URL field. Empty when the bug has no URL.
	TopLevelPattern string
}

// Entry is one logical exception: a (category, tracker pattern, feature,
// version window) tuple traceable to the bug that required it.
type Entry struct {
	Category           Category
	URLPattern         string
	Feature            string
	Window             Window
	BugID              int64
	TopLevelURLPattern string
}

// Key returns the deterministic identity of the entry. Two entries with
// the same key are the same logical record regardless of which bug or run
// created them, so BugID and the top-level pattern are excluded.
func (e Entry) Key() string {
	return strings.Join([]string{string(e.Category), e.URLPattern, e.Feature, string(e.Window)}, "|")
}

// Record converts the entry to its persisted remote-settings form.
// Entries before the cutoff additionally apply only in private browsing
// under the standard content-blocking configuration, matching how clients
// behaved before the cutoff release.
func (e Entry) Record() remotesettings.Record {
	rec := remotesettings.Record{
		BugIDs:             []string{strconv.FormatInt(e.BugID, 10)},
		URLPattern:         e.URLPattern,
		ClassifierFeatures: []string{e.Feature},
		Category:           string(e.Category),
		TopLevelURLPattern: e.TopLevelURLPattern,
		FilterExpression:   e.Window.FilterExpression(),
	}
	if e.Window == WindowBeforeCutoff {
		rec.IsPrivateBrowsingOnly = true
		rec.FilterContentBlockingCategories = []string{"standard"}
	}
	return rec
}

// RecordKeys expands a remote record into one identity key per classifier
// feature, mirroring how planned entries carry a single feature each.
func RecordKeys(r remotesettings.Record) []string {
	window := WindowFromFilterExpression(r.FilterExpression)
	keys := make([]string, 0, len(r.ClassifierFeatures))
	for _, feature := range r.ClassifierFeatures {
		keys = append(keys, strings.Join([]string{r.Category, r.URLPattern, feature, string(window)}, "|"))
	}
	return keys
}

// HostPattern converts a bare hostname to the match-pattern form used in
// records.
func HostPattern(host string) string {
	return "*://" + host + "/*"
}
