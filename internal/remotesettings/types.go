package remotesettings

import (
	"encoding/json"
	"strings"
)

// DefaultCategory is applied to records that predate the category field.
const DefaultCategory = "convenience"

// Record is an exception record as stored in the remote-settings
// collection. Optional fields use omitempty so the wire form matches what
// the settings service serves: absent rather than null/false.
type Record struct {
	ID                              string   `json:"id,omitempty"`
	BugIDs                          []string `json:"bugIds"`
	URLPattern                      string   `json:"urlPattern"`
	ClassifierFeatures              []string `json:"classifierFeatures"`
	Category                        string   `json:"category"`
	TopLevelURLPattern              string   `json:"topLevelUrlPattern,omitempty"`
	IsPrivateBrowsingOnly           bool     `json:"isPrivateBrowsingOnly,omitempty"`
	FilterContentBlockingCategories []string `json:"filterContentBlockingCategories,omitempty"`
	FilterExpression                string   `json:"filter_expression,omitempty"`
}

// UnmarshalJSON normalizes legacy records: early records carried a single
// "bugId" string instead of "bugIds", and some predate the category field.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	aux := struct {
		*alias
		LegacyBugID string `json:"bugId"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(r.BugIDs) == 0 && aux.LegacyBugID != "" {
		r.BugIDs = []string{aux.LegacyBugID}
	}
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	return nil
}

// Owns reports whether the record is traceable to the given bug.
func (r *Record) Owns(bugID string) bool {
	for _, id := range r.BugIDs {
		if id == bugID {
			return true
		}
	}
	return false
}

// IsGlobal reports whether the record applies on every top-level site.
func (r *Record) IsGlobal() bool {
	return r.TopLevelURLPattern == ""
}

// IsBlocking reports whether any of the record's classifier features is a
// blocking protection feature (as opposed to annotation-only features).
func (r *Record) IsBlocking() bool {
	for _, feature := range r.ClassifierFeatures {
		if strings.HasSuffix(feature, "-protection") {
			return true
		}
	}
	return false
}
