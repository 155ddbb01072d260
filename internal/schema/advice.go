// Package schema defines the StructuredAdvice payload contract and its
// validation and fallback-synthesis rules.
package schema

// Alternative is a secondary recommendation attached to a piece of advice.
type Alternative struct {
	Player string `json:"player"`
	Reason string `json:"reason,omitempty"`
}

// StructuredAdvice is the structured payload every completed request resolves
// to. MainAdvice is the only mandatory field; everything else is detail.
type StructuredAdvice struct {
	MainAdvice      string        `json:"main_advice"`
	Reasoning       string        `json:"reasoning,omitempty"`
	ConfidenceScore *float64      `json:"confidence_score,omitempty"`
	Alternatives    []Alternative `json:"alternatives,omitempty"`
	ModelIdentifier string        `json:"model_identifier,omitempty"`
}
