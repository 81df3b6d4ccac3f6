package llm

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/btp-tools/fichetech/internal/models"
)

var jsonBlockRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// ExtractJSONBlock returns the contents of the first fenced ```json block.
func ExtractJSONBlock(s string) (string, bool) {
	match := jsonBlockRe.FindStringSubmatch(s)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ParseExtraction decodes the extraction payload and normalizes it:
// missing AVANTAGES/UTILISATION become empty sequences, a scalar
// UTILISATION is promoted to a one-element sequence and missing
// characteristics become an empty mapping. Both accented and plain key
// spellings are accepted since models are inconsistent about them.
func ParseExtraction(block string) (*models.ExtractionRecord, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	record := &models.ExtractionRecord{
		Titre:            stringField(raw, "TITRE", "TITLE"),
		Reference:        stringField(raw, "RÉFÉRENCE", "REFERENCE"),
		Description:      stringField(raw, "DESCRIPTION"),
		Avantages:        listField(raw, "AVANTAGES", "ADVANTAGES"),
		Utilisation:      listField(raw, "UTILISATION", "USAGE"),
		Caracteristiques: models.Characteristics{},
	}

	if msg := lookup(raw, "CARACTÉRISTIQUES TECHNIQUES", "CARACTERISTIQUES TECHNIQUES", "CARACTERISTIQUES"); msg != nil {
		var chars models.Characteristics
		if err := json.Unmarshal(msg, &chars); err == nil {
			record.Caracteristiques = chars
		}
	}

	return record, nil
}

func lookup(raw map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, key := range keys {
		if msg, ok := raw[key]; ok && string(msg) != "null" {
			return msg
		}
	}
	return nil
}

func stringField(raw map[string]json.RawMessage, keys ...string) string {
	msg := lookup(raw, keys...)
	if msg == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}
	var v interface{}
	if err := json.Unmarshal(msg, &v); err == nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// listField accepts a JSON array or a bare scalar, which is promoted to a
// one-element sequence.
func listField(raw map[string]json.RawMessage, keys ...string) []string {
	msg := lookup(raw, keys...)
	if msg == nil {
		return []string{}
	}

	var list []string
	if err := json.Unmarshal(msg, &list); err == nil {
		return list
	}

	var mixed []interface{}
	if err := json.Unmarshal(msg, &mixed); err == nil {
		out := make([]string, 0, len(mixed))
		for _, v := range mixed {
			out = append(out, fmt.Sprintf("%v", v))
		}
		return out
	}

	var single string
	if err := json.Unmarshal(msg, &single); err == nil {
		return []string{single}
	}

	return []string{}
}
