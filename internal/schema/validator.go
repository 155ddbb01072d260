package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// fallbackAdvice is rendered when nothing usable survives the stream.
const fallbackAdvice = "Sorry, I encountered an error generating a response. Please try again."

// knownFields is the closed field set. Anything outside it is rejected with a
// field error rather than silently dropped, so malformed model output is
// visible in logs instead of disappearing.
var knownFields = map[string]struct{}{
	"main_advice":      {},
	"reasoning":        {},
	"confidence_score": {},
	"alternatives":     {},
	"model_identifier": {},
}

// fieldAliases maps field names older model outputs used to the canonical
// names. Aliases are normalised before the closed-schema check runs.
var fieldAliases = map[string]string{
	"message":    "main_advice",
	"confidence": "confidence_score",
}

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult is the outcome of validating a candidate payload. When
// Valid is false, Errors holds every field-level failure found; checking does
// not stop at the first one.
type ValidationResult struct {
	Valid  bool
	Advice StructuredAdvice
	Errors []FieldError
}

// Validate checks an arbitrary decoded JSON mapping against the
// StructuredAdvice contract. It is a pure function: no side effects, and
// validation failure is reported through the result, never an error value.
func Validate(candidate map[string]any) ValidationResult {
	normalised := normaliseAliases(candidate)

	var (
		advice StructuredAdvice
		errs   []FieldError
	)

	raw, ok := normalised["main_advice"]
	if !ok {
		errs = append(errs, FieldError{Field: "main_advice", Message: "required field is missing"})
	} else if s, isString := raw.(string); !isString {
		errs = append(errs, FieldError{Field: "main_advice", Message: "must be a string"})
	} else if strings.TrimSpace(s) == "" {
		errs = append(errs, FieldError{Field: "main_advice", Message: "must be a non-empty string"})
	} else {
		advice.MainAdvice = s
	}

	if raw, ok := normalised["reasoning"]; ok {
		if s, isString := raw.(string); isString {
			advice.Reasoning = s
		} else {
			errs = append(errs, FieldError{Field: "reasoning", Message: "must be a string"})
		}
	}

	if raw, ok := normalised["confidence_score"]; ok {
		if score, isNumber := asNumber(raw); !isNumber {
			errs = append(errs, FieldError{Field: "confidence_score", Message: "must be a number"})
		} else if score < 0.0 || score > 1.0 {
			errs = append(errs, FieldError{
				Field:   "confidence_score",
				Message: fmt.Sprintf("must be within [0.0, 1.0], got %v", score),
			})
		} else {
			advice.ConfidenceScore = &score
		}
	}

	if raw, ok := normalised["alternatives"]; ok {
		alternatives, altErrs := parseAlternatives(raw)
		advice.Alternatives = alternatives
		errs = append(errs, altErrs...)
	}

	if raw, ok := normalised["model_identifier"]; ok {
		if s, isString := raw.(string); isString {
			advice.ModelIdentifier = s
		} else {
			errs = append(errs, FieldError{Field: "model_identifier", Message: "must be a string"})
		}
	}

	for _, name := range unknownFields(normalised) {
		errs = append(errs, FieldError{Field: name, Message: "unknown field"})
	}

	if len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs}
	}
	return ValidationResult{Valid: true, Advice: advice}
}

// MakeFallback synthesises a minimal valid StructuredAdvice from whatever raw
// text survived the stream. It is total: any input, including the empty
// string, yields a payload that passes Validate.
func MakeFallback(rawText string) StructuredAdvice {
	text := strings.TrimSpace(rawText)

	if strings.HasPrefix(text, "{") {
		// The buffer looks like JSON. Salvage main_advice if it parses;
		// truncated JSON is unrenderable, so fall through to the apology.
		var candidate map[string]any
		if err := json.Unmarshal([]byte(text), &candidate); err == nil {
			salvaged := normaliseAliases(candidate)
			if s, ok := salvaged["main_advice"].(string); ok && strings.TrimSpace(s) != "" {
				return StructuredAdvice{MainAdvice: s, ModelIdentifier: "fallback"}
			}
		}
		text = ""
	}

	if text == "" {
		text = fallbackAdvice
	}
	return StructuredAdvice{MainAdvice: text, ModelIdentifier: "fallback"}
}

func normaliseAliases(candidate map[string]any) map[string]any {
	normalised := make(map[string]any, len(candidate))
	for key, value := range candidate {
		normalised[key] = value
	}
	for alias, canonical := range fieldAliases {
		if value, ok := normalised[alias]; ok {
			if _, taken := normalised[canonical]; !taken {
				normalised[canonical] = value
			}
			delete(normalised, alias)
		}
	}
	return normalised
}

func asNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func parseAlternatives(raw any) ([]Alternative, []FieldError) {
	entries, ok := raw.([]any)
	if !ok {
		return nil, []FieldError{{Field: "alternatives", Message: "must be an array"}}
	}

	var (
		alternatives []Alternative
		errs         []FieldError
	)
	for i, entry := range entries {
		switch v := entry.(type) {
		case string:
			// Older model outputs emitted a flat list of player names.
			alternatives = append(alternatives, Alternative{Player: v})
		case map[string]any:
			player, _ := v["player"].(string)
			if strings.TrimSpace(player) == "" {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("alternatives[%d].player", i),
					Message: "required field is missing",
				})
				continue
			}
			reason, _ := v["reason"].(string)
			alternatives = append(alternatives, Alternative{Player: player, Reason: reason})
		default:
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("alternatives[%d]", i),
				Message: "must be a string or an object",
			})
		}
	}
	return alternatives, errs
}

func unknownFields(normalised map[string]any) []string {
	var unknown []string
	for name := range normalised {
		if _, ok := knownFields[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}
