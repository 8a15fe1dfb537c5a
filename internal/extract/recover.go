package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// MissingJSONParse is the missing-fields marker recorded when the service
// response could not be recovered into a JSON object.
const MissingJSONParse = "json_parse"

var (
	fenceMarkers = regexp.MustCompile("(?im)^```(?:json)?\\s*|\\s*```$")
	braceSpan    = regexp.MustCompile(`(?s)\{.*\}`)
)

// Meta carries the envelope every extraction profile shares. Raw is set only
// on the unparseable sentinel, preserving the original service output for
// diagnosis.
type Meta struct {
	OK            bool     `json:"ok"`
	MissingFields []string `json:"missing_fields"`
	Raw           string   `json:"raw,omitempty"`
}

func (m *Meta) markUnparseable(raw string) {
	m.OK = false
	m.MissingFields = []string{MissingJSONParse}
	m.Raw = raw
}

// recoverObject tries to pull a JSON object out of content: strip code
// fences, parse directly, and on failure parse the first brace-delimited
// span. It reports whether out was populated; callers turn a false return
// into the sentinel result.
func recoverObject(content string, out any) bool {
	t := strings.TrimSpace(fenceMarkers.ReplaceAllString(strings.TrimSpace(content), ""))
	if json.Unmarshal([]byte(t), out) == nil {
		return true
	}
	if span := braceSpan.FindString(t); span != "" {
		if json.Unmarshal([]byte(span), out) == nil {
			return true
		}
	}
	return false
}
