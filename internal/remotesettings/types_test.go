package remotesettings

import (
	"encoding/json"
	"testing"
)

func TestRecordUnmarshalLegacyBugID(t *testing.T) {
	raw := `{
		"id": "2a50e5fa-4762-4a3b-a5d0-53a7e9bbe91a",
		"bugId": "123456",
		"urlPattern": "*://example.com/*",
		"classifierFeatures": ["tracking-protection"],
		"topLevelUrlPattern": "*://example.net/*",
		"isPrivateBrowsingOnly": true,
		"filterContentBlockingCategories": ["standard"]
	}`

	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if r.ID != "2a50e5fa-4762-4a3b-a5d0-53a7e9bbe91a" {
		t.Errorf("ID = %q", r.ID)
	}
	if len(r.BugIDs) != 1 || r.BugIDs[0] != "123456" {
		t.Errorf("BugIDs = %v, want [123456]", r.BugIDs)
	}
	if r.URLPattern != "*://example.com/*" {
		t.Errorf("URLPattern = %q", r.URLPattern)
	}
	if r.TopLevelURLPattern != "*://example.net/*" {
		t.Errorf("TopLevelURLPattern = %q", r.TopLevelURLPattern)
	}
	if !r.IsPrivateBrowsingOnly {
		t.Error("IsPrivateBrowsingOnly = false, want true")
	}
	if r.Category != DefaultCategory {
		t.Errorf("Category = %q, want default %q", r.Category, DefaultCategory)
	}
}

func TestRecordUnmarshalBugIDs(t *testing.T) {
	raw := `{
		"id": "2a50e5fa-4762-4a3b-a5d0-53a7e9bbe91a",
		"bugIds": ["123456", "654321"],
		"urlPattern": "*://example.com/*",
		"classifierFeatures": ["tracking-protection"],
		"category": "baseline"
	}`

	var r Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if len(r.BugIDs) != 2 || r.BugIDs[0] != "123456" || r.BugIDs[1] != "654321" {
		t.Errorf("BugIDs = %v, want [123456 654321]", r.BugIDs)
	}
	if r.Category != "baseline" {
		t.Errorf("Category = %q, want baseline", r.Category)
	}
}

func TestRecordMarshalOmitsOptionalFields(t *testing.T) {
	r := Record{
		ID:                 "abc",
		BugIDs:             []string{"1"},
		URLPattern:         "*://a.com/*",
		ClassifierFeatures: []string{"tracking-protection"},
		Category:           "baseline",
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal round trip: %v", err)
	}
	for _, field := range []string{"topLevelUrlPattern", "isPrivateBrowsingOnly", "filterContentBlockingCategories", "filter_expression"} {
		if _, ok := m[field]; ok {
			t.Errorf("marshaled record contains unset optional field %q", field)
		}
	}
}

func TestRecordOwns(t *testing.T) {
	r := Record{BugIDs: []string{"100", "200"}}
	if !r.Owns("100") {
		t.Error("Owns(100) = false, want true")
	}
	if r.Owns("300") {
		t.Error("Owns(300) = true, want false")
	}
}

func TestRecordIsGlobalAndBlocking(t *testing.T) {
	global := Record{
		URLPattern:         "*://tracker.example/*",
		ClassifierFeatures: []string{"tracking-protection"},
	}
	if !global.IsGlobal() {
		t.Error("record without topLevelUrlPattern should be global")
	}
	if !global.IsBlocking() {
		t.Error("tracking-protection feature should be blocking")
	}

	scoped := Record{
		URLPattern:         "*://tracker.example/*",
		TopLevelURLPattern: "*://site.example/*",
		ClassifierFeatures: []string{"tracking-annotation"},
	}
	if scoped.IsGlobal() {
		t.Error("record with topLevelUrlPattern should not be global")
	}
	if scoped.IsBlocking() {
		t.Error("annotation feature should not be blocking")
	}
}
