package exceptions

import (
	"fmt"
	"net/url"
	"strings"
)

// Whiteboard tags the privacy team uses to annotate diagnosed site
// report bugs.
const (
	TagDiagnosed   = "[privacy-team:diagnosed]"
	TagBaseline    = "[exception-baseline]"
	TagConvenience = "[exception-convenience]"
)

// User story lines carrying the structured fields.
const (
	lineTrackers = "trackers-blocked:"
	lineFeatures = "classifier-features:"
)

// ParseStatus classifies the outcome of parsing a bug's annotations.
type ParseStatus int

const (
	// ParseOK means all required fields are present and valid.
	ParseOK ParseStatus = iota
	// ParseNotActionable means the bug lacks the diagnosis tag and is not
	// this tool's to process.
	ParseNotActionable
	// ParseIncomplete means the bug is diagnosed but required fields are
	// missing. The diagnosis is presumably still in progress.
	ParseIncomplete
	// ParseMalformed means fields are present but unusable (ambiguous
	// category, empty tokens, bad URL).
	ParseMalformed
)

func (s ParseStatus) String() string {
	switch s {
	case ParseOK:
		return "ok"
	case ParseNotActionable:
		return "not-actionable"
	case ParseIncomplete:
		return "incomplete"
	case ParseMalformed:
		return "malformed"
	}
	return "unknown"
}

// ParseMetadata extracts structured fields from a bug's whiteboard and
// user story. The user story is human-authored text and is treated as an
// untrusted format: anything that does not match the grammar exactly is
// rejected with a reason rather than guessed at.
func ParseMetadata(whiteboard, userStory, bugURL string) (*StructuredFields, ParseStatus, string) {
	if !strings.Contains(whiteboard, TagDiagnosed) {
		return nil, ParseNotActionable, "missing " + TagDiagnosed + " tag"
	}

	hasBaseline := strings.Contains(whiteboard, TagBaseline)
	hasConvenience := strings.Contains(whiteboard, TagConvenience)
	switch {
	case hasBaseline && hasConvenience:
		return nil, ParseMalformed, "both category tags present"
	case !hasBaseline && !hasConvenience:
		return nil, ParseIncomplete, "missing exception category tag"
	}

	category := CategoryConvenience
	if hasBaseline {
		category = CategoryBaseline
	}

	var trackers, features []string
	var haveTrackers, haveFeatures bool
	for _, line := range strings.Split(userStory, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, lineTrackers):
			tokens, err := parseTokenList(strings.TrimPrefix(line, lineTrackers))
			if err != nil {
				return nil, ParseMalformed, fmt.Sprintf("%s %v", lineTrackers, err)
			}
			trackers = tokens
			haveTrackers = true
		case strings.HasPrefix(line, lineFeatures):
			tokens, err := parseTokenList(strings.TrimPrefix(line, lineFeatures))
			if err != nil {
				return nil, ParseMalformed, fmt.Sprintf("%s %v", lineFeatures, err)
			}
			features = tokens
			haveFeatures = true
		}
	}

	if !haveTrackers {
		return nil, ParseIncomplete, "missing " + lineTrackers + " line"
	}
	if !haveFeatures {
		return nil, ParseIncomplete, "missing " + lineFeatures + " line"
	}

	topLevel, err := topLevelPattern(bugURL)
	if err != nil {
		return nil, ParseMalformed, err.Error()
	}

	return &StructuredFields{
		Category:        category,
		Trackers:        trackers,
		Features:        features,
		TopLevelPattern: topLevel,
	}, ParseOK, ""
}

// parseTokenList splits a comma-separated token list, trimming whitespace.
// Empty tokens are rejected rather than dropped: they usually mean a typo
// in the line, and silently narrowing an exception list is worse than
// asking the author to fix it.
func parseTokenList(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" {
			return nil, fmt.Errorf("empty token in list %q", strings.TrimSpace(raw))
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// topLevelPattern derives the site-scoping match pattern from the bug's
// URL field. The URL is optional; a present but unparsable one is an
// error so a typoed report doesn't produce an exception scoped to the
// wrong site.
func topLevelPattern(bugURL string) (string, error) {
	if bugURL == "" {
		return "", nil
	}
	if !strings.HasPrefix(bugURL, "http") {
		return "", fmt.Errorf("bad bug URL %q", bugURL)
	}
	parsed, err := url.Parse(bugURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("bad bug URL %q", bugURL)
	}
	return HostPattern(parsed.Host), nil
}
