package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Status values carried by RequestResult.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SearchResult is a single raw search hit, consumed immediately for ranking.
type SearchResult struct {
	Title string
	URL   string
}

// Attempt records one search backend try for diagnostics.
type Attempt struct {
	Endpoint string `json:"endpoint"`
	Status   string `json:"status"`
}

// Characteristic is one technical characteristic name/value pair.
type Characteristic struct {
	Name  string
	Value string
}

// Characteristics is an ordered name->value mapping. JSON objects lose key
// order with a plain map, so it round-trips through a token stream instead.
type Characteristics []Characteristic

func (c Characteristics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(entry.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Characteristics) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object for characteristics, got %v", tok)
	}

	seen := make(map[string]bool)
	out := Characteristics{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Characteristic{Name: key, Value: stringify(raw)})
	}
	*c = out
	return nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ExtractionRecord is the LLM answer normalized into fixed fields. Created
// once per request and immutable afterwards.
type ExtractionRecord struct {
	Titre            string          `json:"TITRE"`
	Reference        string          `json:"REFERENCE"`
	Description      string          `json:"DESCRIPTION"`
	Avantages        []string        `json:"AVANTAGES"`
	Utilisation      []string        `json:"UTILISATION"`
	Caracteristiques Characteristics `json:"CARACTERISTIQUES TECHNIQUES"`
}

// CharacteristicCell is one cell of the two-column characteristics layout.
type CharacteristicCell struct {
	Titre  string `json:"titre"`
	Valeur string `json:"valeur"`
}

// CharacteristicRow pairs two characteristics for the two-column rendering
// layout; an odd leftover gets an empty second cell.
type CharacteristicRow struct {
	Item1 CharacteristicCell `json:"item1"`
	Item2 CharacteristicCell `json:"item2"`
}

// RequestResult is the aggregate outcome of one pipeline invocation. It is
// the full contract toward the presentation layer; every code path produces
// one with ExecutionTime populated.
type RequestResult struct {
	Status         string            `json:"status"`
	Message        string            `json:"message"`
	URLSource      string            `json:"url_source,omitempty"`
	BestURL        string            `json:"best_url,omitempty"`
	ExtractedData  *ExtractionRecord `json:"extracted_data,omitempty"`
	GeneratedDocx  string            `json:"generated_docx,omitempty"`
	DownloadedPDFs []string          `json:"downloaded_pdfs"`
	ImagePath      string            `json:"image_path,omitempty"`
	ExecutionTime  float64           `json:"execution_time"`
	RequestID      string            `json:"request_id"`
	TriedEndpoints []Attempt         `json:"tried_endpoints,omitempty"`
}
