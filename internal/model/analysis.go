package model

import (
	"encoding/json"
	"time"
)

// Quote is a supporting customer quote. The model sometimes emits quotes as
// bare strings and sometimes as {"quote": "..."} objects; both decode to the
// plain string form, so the ambiguity never leaves the parse boundary.
type Quote string

func (q *Quote) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = Quote(s)
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if v, ok := obj["quote"].(string); ok {
		*q = Quote(v)
		return nil
	}
	// No "quote" field: fall back to the object's compact string form.
	*q = Quote(string(data))
	return nil
}

// Sentiment is the overall sentiment block of an analysis.
type Sentiment struct {
	Score        float64            `json:"score"`
	Sentiment    string             `json:"sentiment"`
	Distribution map[string]float64 `json:"distribution,omitempty"`
}

// FeatureSentiment is per-feature sentiment detail.
type FeatureSentiment struct {
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
	Mentions  int     `json:"mentions"`
	Quotes    []Quote `json:"quotes,omitempty"`
}

// Aspect is a ranked praise or complaint.
type Aspect struct {
	Aspect     string  `json:"aspect"`
	Frequency  int     `json:"frequency"`
	Percentage float64 `json:"percentage"`
	Score      float64 `json:"score"`
	Quotes     []Quote `json:"quotes,omitempty"`
}

// UserSegment is a user-type satisfaction breakdown.
type UserSegment struct {
	Segment      string  `json:"segment"`
	Satisfaction float64 `json:"satisfaction"`
	Count        int     `json:"count"`
}

// QualityIssue is a reported product quality problem.
type QualityIssue struct {
	Issue     string  `json:"issue"`
	Frequency int     `json:"frequency"`
	Severity  string  `json:"severity"`
	Quotes    []Quote `json:"quotes,omitempty"`
}

// PriceInfo is a price extracted from review content. Some responses use
// "platform" instead of "source"; the alias is resolved at decode time.
type PriceInfo struct {
	Source   string `json:"source"`
	URL      string `json:"url,omitempty"`
	Price    string `json:"price,omitempty"`
	Currency string `json:"currency,omitempty"`
}

func (p *PriceInfo) UnmarshalJSON(data []byte) error {
	type alias PriceInfo
	aux := struct {
		*alias
		Platform string `json:"platform"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.Source == "" && aux.Platform != "" {
		p.Source = aux.Platform
	}
	return nil
}

// CompetitorMention is how reviews reference a competing product.
type CompetitorMention struct {
	Mentions  int     `json:"mentions"`
	Sentiment string  `json:"sentiment"`
	Quotes    []Quote `json:"quotes,omitempty"`
}

// ValueAnalysis is the value-for-money assessment.
type ValueAnalysis struct {
	Score                   float64  `json:"score"`
	Sentiment               string   `json:"sentiment"`
	PercentageSayingWorthIt float64  `json:"percentage_saying_worth_it"`
	BetterAlternatives      []string `json:"better_alternatives,omitempty"`
}

// Summary is the free-text summary block.
type Summary struct {
	OneLiner          string   `json:"one_liner"`
	BestFor           []string `json:"best_for,omitempty"`
	NotRecommendedFor []string `json:"not_recommended_for,omitempty"`
	Strengths         []string `json:"strengths,omitempty"`
	Weaknesses        []string `json:"weaknesses,omitempty"`
	Verdict           string   `json:"verdict"`
}

// AnalysisPayload is the structured result of one analysis pass over the
// accumulated review set. It is the exact JSON shape the model is prompted
// to produce.
type AnalysisPayload struct {
	Sentiment          *Sentiment                   `json:"sentiment,omitempty"`
	Features           map[string]FeatureSentiment  `json:"features,omitempty"`
	TopPraises         []Aspect                     `json:"top_praises,omitempty"`
	TopComplaints      []Aspect                     `json:"top_complaints,omitempty"`
	UserSegments       []UserSegment                `json:"user_segments,omitempty"`
	QualityIssues      []QualityIssue               `json:"quality_issues,omitempty"`
	Prices             []PriceInfo                  `json:"prices,omitempty"`
	CompetitorMentions map[string]CompetitorMention `json:"competitor_mentions,omitempty"`
	ValueAnalysis      *ValueAnalysis               `json:"value_analysis,omitempty"`
	Summary            *Summary                     `json:"summary,omitempty"`
	GeneralSentiment   string                       `json:"general_sentiment,omitempty"`
	Pros               []string                     `json:"pros,omitempty"`
	Cons               []string                     `json:"cons,omitempty"`
	Description        string                       `json:"description,omitempty"`
}

// AnalysisResult is the persisted analysis for a product: exactly one row
// per product, overwritten on each pipeline iteration so it always reflects
// all reviews scraped so far.
type AnalysisResult struct {
	ProductID  string    `json:"product_id"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	AnalysisPayload
}
