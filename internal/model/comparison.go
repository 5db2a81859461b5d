package model

import (
	"encoding/json"
	"time"
)

// Difference is one key difference between compared products. The model
// emits these either as bare strings or as {"difference": "..."} objects.
type Difference string

func (d *Difference) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = Difference(s)
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if v, ok := obj["difference"].(string); ok {
		*d = Difference(v)
		return nil
	}
	*d = Difference(string(data))
	return nil
}

// ProsCons holds per-product pros and cons in a comparison.
type ProsCons struct {
	Pros []Quote `json:"pros,omitempty"`
	Cons []Quote `json:"cons,omitempty"`
}

// FeatureComparison is one feature's head-to-head verdict.
type FeatureComparison struct {
	Winner    string             `json:"winner"`
	Reasoning string             `json:"reasoning"`
	Scores    map[string]float64 `json:"scores,omitempty"`
	Quotes    []Quote            `json:"quotes,omitempty"`
}

// ComparisonSummary is the comparison's free-text summary block.
type ComparisonSummary struct {
	Recommendation        string            `json:"recommendation"`
	BestForDifferentUsers map[string]string `json:"best_for_different_users,omitempty"`
	FinalVerdict          string            `json:"final_verdict"`
}

// ComparisonPayload is the structured result of a comparison LLM call.
// Matrix cells are pointers so a null score from the model is stored as-is
// and only coerced to 0.0 at the read boundary.
type ComparisonPayload struct {
	ComparedProducts  []string                       `json:"compared_products"`
	OverallWinner     string                         `json:"overall_winner"`
	WinnerReasoning   string                         `json:"winner_reasoning"`
	ComparisonMatrix  map[string]map[string]*float64 `json:"comparison_matrix,omitempty"`
	ProsCons          map[string]ProsCons            `json:"pros_cons,omitempty"`
	FeatureComparison map[string]FeatureComparison   `json:"feature_comparison,omitempty"`
	VerdictByUseCase  map[string]string              `json:"verdict_by_use_case,omitempty"`
	KeyDifferences    []Difference                   `json:"key_differences,omitempty"`
	Summary           *ComparisonSummary             `json:"summary,omitempty"`
}

// Comparison is a persisted comparison. Immutable once written.
type Comparison struct {
	ComparisonID string    `json:"comparison_id"`
	CreatedAt    time.Time `json:"created_at"`
	ComparisonPayload
}

// CleanMatrix returns the comparison matrix with null cells presented as
// 0.0. Stored nulls stay distinguishable from true zero scores; the
// coercion happens only here, on the way out.
func (p *ComparisonPayload) CleanMatrix() map[string]map[string]float64 {
	if p.ComparisonMatrix == nil {
		return nil
	}
	cleaned := make(map[string]map[string]float64, len(p.ComparisonMatrix))
	for feature, scores := range p.ComparisonMatrix {
		row := make(map[string]float64, len(scores))
		for productID, score := range scores {
			if score != nil {
				row[productID] = *score
			} else {
				row[productID] = 0.0
			}
		}
		cleaned[feature] = row
	}
	return cleaned
}

// ProductAnalysis pairs a product's display name with its saved analysis,
// the unit of input to a comparison.
type ProductAnalysis struct {
	ProductID   string
	ProductName string
	Analysis    *AnalysisResult
}
