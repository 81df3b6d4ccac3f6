package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btp-tools/fichetech/internal/models"
)

func TestExtractJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		found    bool
	}{
		{
			name:     "fenced block",
			input:    "Voici le résultat :\n```json\n{\"TITRE\": \"Disjoncteur\"}\n```\nMerci.",
			expected: "{\"TITRE\": \"Disjoncteur\"}\n",
			found:    true,
		},
		{
			name:     "multiline block",
			input:    "```json\n{\n  \"TITRE\": \"X\"\n}\n```",
			expected: "{\n  \"TITRE\": \"X\"\n}\n",
			found:    true,
		},
		{
			name:  "no block",
			input: "Je ne peux pas répondre au format demandé.",
			found: false,
		},
		{
			name:  "plain fenced code is not enough",
			input: "```\n{\"TITRE\": \"X\"}\n```",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, ok := ExtractJSONBlock(tt.input)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, block)
			}
		})
	}
}

func TestParseExtraction(t *testing.T) {
	block := `{
		"TITRE": "Disjoncteur différentiel Legrand 411632",
		"RÉFÉRENCE": "411632",
		"DESCRIPTION": "Disjoncteur différentiel 30mA type AC.",
		"AVANTAGES": ["Pose rapide", "Protection 30mA"],
		"UTILISATION": ["Tableau électrique résidentiel"],
		"CARACTÉRISTIQUES TECHNIQUES": {
			"Calibre": "20A",
			"Sensibilité": "30mA",
			"Type": "AC"
		}
	}`

	record, err := ParseExtraction(block)
	require.NoError(t, err)

	assert.Equal(t, "Disjoncteur différentiel Legrand 411632", record.Titre)
	assert.Equal(t, "411632", record.Reference)
	assert.Equal(t, []string{"Pose rapide", "Protection 30mA"}, record.Avantages)
	assert.Equal(t, []string{"Tableau électrique résidentiel"}, record.Utilisation)

	// declaration order survives the round trip
	require.Len(t, record.Caracteristiques, 3)
	assert.Equal(t, "Calibre", record.Caracteristiques[0].Name)
	assert.Equal(t, "Sensibilité", record.Caracteristiques[1].Name)
	assert.Equal(t, "Type", record.Caracteristiques[2].Name)
	assert.Equal(t, "20A", record.Caracteristiques[0].Value)
}

func TestParseExtractionNormalization(t *testing.T) {
	t.Run("scalar utilisation becomes one element list", func(t *testing.T) {
		record, err := ParseExtraction(`{"TITRE": "X", "UTILISATION": "Usage intérieur"}`)
		require.NoError(t, err)
		assert.Equal(t, []string{"Usage intérieur"}, record.Utilisation)
	})

	t.Run("missing lists become empty not nil", func(t *testing.T) {
		record, err := ParseExtraction(`{"TITRE": "X"}`)
		require.NoError(t, err)
		assert.NotNil(t, record.Avantages)
		assert.Empty(t, record.Avantages)
		assert.NotNil(t, record.Utilisation)
		assert.Empty(t, record.Utilisation)
		assert.Empty(t, record.Caracteristiques)
	})

	t.Run("plain key spellings accepted", func(t *testing.T) {
		record, err := ParseExtraction(`{
			"TITRE": "X",
			"REFERENCE": "REF-1",
			"CARACTERISTIQUES TECHNIQUES": {"Poids": "2kg"}
		}`)
		require.NoError(t, err)
		assert.Equal(t, "REF-1", record.Reference)
		require.Len(t, record.Caracteristiques, 1)
		assert.Equal(t, "Poids", record.Caracteristiques[0].Name)
	})

	t.Run("numeric characteristic values are stringified", func(t *testing.T) {
		record, err := ParseExtraction(`{"TITRE": "X", "CARACTÉRISTIQUES TECHNIQUES": {"Calibre": 20}}`)
		require.NoError(t, err)
		require.Len(t, record.Caracteristiques, 1)
		assert.Equal(t, "20", record.Caracteristiques[0].Value)
	})

	t.Run("mixed type list entries are stringified", func(t *testing.T) {
		record, err := ParseExtraction(`{"TITRE": "X", "AVANTAGES": ["Robuste", 10]}`)
		require.NoError(t, err)
		assert.Equal(t, []string{"Robuste", "10"}, record.Avantages)
	})

	t.Run("invalid json is an error", func(t *testing.T) {
		_, err := ParseExtraction(`{"TITRE": `)
		assert.Error(t, err)
	})
}

func TestCharacteristicsMarshalKeepsOrder(t *testing.T) {
	chars := models.Characteristics{
		{Name: "Calibre", Value: "20A"},
		{Name: "Sensibilité", Value: "30mA"},
		{Name: "Type", Value: "AC"},
	}

	data, err := chars.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"Calibre":"20A","Sensibilité":"30mA","Type":"AC"}`, string(data))

	// the raw bytes keep declaration order, not lexical order
	assert.Equal(t, `{"Calibre":"20A","Sensibilité":"30mA","Type":"AC"}`, string(data))
}
