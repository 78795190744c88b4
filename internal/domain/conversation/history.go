package conversation

import (
	"bytes"
	"encoding/json"
)

// ParseHistory decodes a caller-supplied history hint. It accepts a JSON array of
// {role, content} objects or a JSON string holding such an array, which is how
// multipart clients send it. Anything else yields an empty history.
func ParseHistory(raw []byte) []HistoryEntry {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []HistoryEntry{}
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return []HistoryEntry{}
		}
		return ParseHistoryString(inner)
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		return []HistoryEntry{}
	}
	return entries
}

// ParseHistoryString decodes a history hint sent as a plain form value.
func ParseHistoryString(raw string) []HistoryEntry {
	var entries []HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil || entries == nil {
		return []HistoryEntry{}
	}
	return entries
}
