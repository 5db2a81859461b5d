package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDifferenceUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Difference
	}{
		{
			name:  "plain strings pass through",
			input: `["Y"]`,
			want:  []Difference{"Y"},
		},
		{
			name:  "objects with difference field are flattened",
			input: `[{"difference": "X"}]`,
			want:  []Difference{"X"},
		},
		{
			name:  "mixed shapes",
			input: `["A", {"difference": "B"}]`,
			want:  []Difference{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []Difference
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDifferenceUnmarshal_ObjectWithoutField(t *testing.T) {
	var got []Difference
	require.NoError(t, json.Unmarshal([]byte(`[{"note": "x"}]`), &got))
	require.Len(t, got, 1)
	// Falls back to the raw object text rather than dropping the entry.
	assert.Contains(t, string(got[0]), "note")
}

func TestQuoteUnmarshal(t *testing.T) {
	var pc ProsCons
	input := `{"pros": ["fast", {"quote": "great battery"}], "cons": [{"quote": "pricey"}]}`
	require.NoError(t, json.Unmarshal([]byte(input), &pc))
	assert.Equal(t, []Quote{"fast", "great battery"}, pc.Pros)
	assert.Equal(t, []Quote{"pricey"}, pc.Cons)
}

func TestCleanMatrix_NullsBecomeZero(t *testing.T) {
	score := 7.5
	p := ComparisonPayload{
		ComparisonMatrix: map[string]map[string]*float64{
			"battery": {
				"phone-a": &score,
				"phone-b": nil,
			},
		},
	}

	cleaned := p.CleanMatrix()
	assert.Equal(t, 7.5, cleaned["battery"]["phone-a"])
	assert.Equal(t, 0.0, cleaned["battery"]["phone-b"])

	// The stored payload keeps the null.
	assert.Nil(t, p.ComparisonMatrix["battery"]["phone-b"])
}

func TestCleanMatrix_Nil(t *testing.T) {
	var p ComparisonPayload
	assert.Nil(t, p.CleanMatrix())
}

func TestPriceInfoPlatformAlias(t *testing.T) {
	var pi PriceInfo
	require.NoError(t, json.Unmarshal([]byte(`{"platform": "amazon", "price": "₹999"}`), &pi))
	assert.Equal(t, "amazon", pi.Source)

	// Explicit source wins over the alias.
	require.NoError(t, json.Unmarshal([]byte(`{"source": "flipkart", "platform": "amazon"}`), &pi))
	assert.Equal(t, "flipkart", pi.Source)
}

func TestFeatureSentimentQuotes(t *testing.T) {
	var fs FeatureSentiment
	input := `{"sentiment": "positive", "score": 8.2, "mentions": 12, "quotes": [{"quote": "love it"}, "solid"]}`
	require.NoError(t, json.Unmarshal([]byte(input), &fs))
	assert.Equal(t, []Quote{"love it", "solid"}, fs.Quotes)
}
