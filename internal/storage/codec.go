package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pauljones0/shift-code-watcher/internal/models"
)

const stateVersion = 2

// stateDocument is the persisted shape of the known set. Unknown keys are
// ignored by encoding/json, which keeps older binaries able to read newer
// files.
type stateDocument struct {
	Version     int             `json:"version"`
	Codes       json.RawMessage `json:"codes"`
	LastUpdated string          `json:"last_updated,omitempty"`
}

// Encode serializes the known set. Output is stable for a given set.
func Encode(set models.KnownSet) ([]byte, error) {
	codes := set.Codes
	if codes == nil {
		codes = map[string]models.KnownCode{}
	}
	rawCodes, err := json.Marshal(codes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode codes: %w", err)
	}

	doc := stateDocument{
		Version: stateVersion,
		Codes:   rawCodes,
	}
	if !set.UpdatedAt.IsZero() {
		doc.LastUpdated = set.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses persisted state. It accepts both the current map shape and
// the legacy shape where "codes" is a plain list of code strings. A document
// that is not an object or has no "codes" key is an error; an empty set is
// stored as "codes": {}.
func Decode(data []byte) (models.KnownSet, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.KnownSet{}, fmt.Errorf("state document is not a JSON object")
	}

	var doc stateDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return models.KnownSet{}, fmt.Errorf("invalid state document: %w", err)
	}
	if len(doc.Codes) == 0 || string(doc.Codes) == "null" {
		return models.KnownSet{}, fmt.Errorf("state document has no codes")
	}

	set := models.NewKnownSet()
	if doc.LastUpdated != "" {
		set.UpdatedAt = parseTimestamp(doc.LastUpdated)
	}

	switch doc.Codes[0] {
	case '{':
		var codes map[string]models.KnownCode
		if err := json.Unmarshal(doc.Codes, &codes); err != nil {
			return models.KnownSet{}, fmt.Errorf("invalid codes map: %w", err)
		}
		for code, meta := range codes {
			if norm := models.NormalizeCode(code); norm != "" {
				set.Codes[norm] = meta
			}
		}
	case '[':
		var codes []string
		if err := json.Unmarshal(doc.Codes, &codes); err != nil {
			return models.KnownSet{}, fmt.Errorf("invalid legacy codes list: %w", err)
		}
		for _, code := range codes {
			if norm := models.NormalizeCode(code); norm != "" {
				set.Codes[norm] = models.KnownCode{FirstSeen: set.UpdatedAt, LastSeen: set.UpdatedAt}
			}
		}
	default:
		return models.KnownSet{}, fmt.Errorf("unexpected codes value %.20q", string(doc.Codes))
	}
	return set, nil
}

// parseTimestamp accepts RFC 3339 and the offset-less ISO 8601 form found in
// legacy state files. Unparsable values yield the zero time.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
