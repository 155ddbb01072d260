// Package searchpolicy decides whether a request should enable the upstream
// web search tool. The rules are systematic so the decision costs no model
// tokens: search when the query is time-sensitive or touches recently active
// entities, skip when it is historical or theoretical.
package searchpolicy

import (
	"regexp"
	"strings"
)

// Decision is the outcome of evaluating a query against the search rules.
type Decision string

const (
	DecisionMandatory Decision = "mandatory"
	DecisionSkip      Decision = "skip"
	DecisionBypass    Decision = "bypass"
)

var timeSensitiveKeywords = []string{
	// Immediate status
	"today", "tonight", "now", "current", "latest", "recent", "breaking",
	"this week", "this weekend", "upcoming", "tomorrow",
	// Injury and availability
	"injury", "injured", "hurt", "questionable", "doubtful",
	"gtd", "game time decision", "dnp", "limited", "full practice",
	"active", "inactive", "ruled out", "cleared",
	// Performance trends
	"trending", "hot", "cold", "slump", "streak", "surge", "momentum",
	"last game", "last week", "past few",
	// Weather and conditions
	"weather", "wind", "rain", "snow", "temperature", "dome", "outdoor",
	// Lineup and usage
	"starting", "bench", "snap count", "targets", "carries", "usage",
	"role change", "promoted", "demoted", "depth chart",
	// News and updates
	"news", "update", "report", "announced", "confirmed", "suspended",
	"trade", "waiver", "pickup", "drop",
}

var historicalKeywords = []string{
	"all time", "all-time", "career", "history", "historical", "record books",
	"hall of fame", "retired", "legacy", "greatest", "ever",
}

var bypassCommands = []string{
	"/nosrch", "/nosearch", "/skip-search", "--no-web-search",
}

var pastYearPattern = regexp.MustCompile(`\b(19\d{2}|20[01]\d)\b`)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Decide applies the search rules to a user query and returns the decision
// plus a short reasoning string for logs.
func (s *Service) Decide(query string) (Decision, string) {
	lower := strings.ToLower(query)

	for _, cmd := range bypassCommands {
		if strings.Contains(lower, cmd) {
			return DecisionBypass, "user explicitly disabled search"
		}
	}

	if keyword, ok := matchAny(lower, timeSensitiveKeywords); ok {
		return DecisionMandatory, "time-sensitive query detected: " + keyword
	}

	if keyword, ok := matchAny(lower, historicalKeywords); ok {
		return DecisionSkip, "historical query detected: " + keyword
	}
	if pastYearPattern.MatchString(lower) {
		return DecisionSkip, "query references a past season"
	}

	return DecisionSkip, "no time-sensitive elements detected"
}

// StripBypass removes bypass commands from the query so they never reach the
// model.
func (s *Service) StripBypass(query string) string {
	cleaned := query
	for _, cmd := range bypassCommands {
		cleaned = strings.ReplaceAll(cleaned, cmd, "")
	}
	return strings.TrimSpace(cleaned)
}

func matchAny(lower string, keywords []string) (string, bool) {
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return keyword, true
		}
	}
	return "", false
}
