package bugzilla

import "strings"

// Bug is the subset of Bugzilla bug fields the exception workflow reads.
// cf_user_story is the free-text "user story" custom field where the
// privacy team records the diagnosed tracker domains.
type Bug struct {
	ID         int64  `json:"id"`
	Summary    string `json:"summary"`
	URL        string `json:"url"`
	Whiteboard string `json:"whiteboard"`
	Status     string `json:"status"`
	Resolution string `json:"resolution"`
	Severity   string `json:"severity"`
	Priority   string `json:"priority"`
	Creator    string `json:"creator"`
	UserStory  string `json:"cf_user_story"`
}

// HasTag reports whether the whiteboard contains the given bracketed tag.
func (b *Bug) HasTag(tag string) bool {
	return strings.Contains(b.Whiteboard, tag)
}

// IsOpen reports whether the bug is still awaiting action. Resolved and
// verified bugs are terminal for this tool; it never re-touches them.
func (b *Bug) IsOpen() bool {
	switch b.Status {
	case "RESOLVED", "VERIFIED", "CLOSED":
		return false
	}
	return true
}

type searchResponse struct {
	Bugs []Bug `json:"bugs"`
}
