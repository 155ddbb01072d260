// Package prompt loads the system prompt from the modular prompt directory,
// with an in-process cache and an environment override. The current date is
// anchored into every prompt so time-relative questions resolve correctly.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/draftwise/draftwise/internal/config"
	"github.com/rs/zerolog/log"
)

const defaultSystemPrompt = "You are a fantasy sports advisor. Respond with a single JSON object " +
	"containing main_advice (required), reasoning, confidence_score between 0 and 1, and alternatives."

// Service is constructed once at startup and injected where needed.
type Service struct {
	basePath string
	override string
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]string
}

func NewService() *Service {
	return &Service{
		basePath: config.GetPromptsPath(),
		override: config.GetSystemPromptOverride(),
		now:      time.Now,
		cache:    make(map[string]string),
	}
}

// SystemPrompt returns the assembled system prompt: the env override or the
// universal prompt files, followed by the date anchor.
func (s *Service) SystemPrompt() string {
	base := s.override
	if base == "" {
		base = s.loadFile(filepath.Join(s.basePath, "universal", "base.md"))
	}
	if base == "" {
		base = defaultSystemPrompt
	}

	anchor := fmt.Sprintf("Today's date is %s.", s.now().Format("Monday, January 2, 2006"))
	return strings.TrimSpace(base) + "\n\n" + anchor
}

func (s *Service) loadFile(path string) string {
	s.mu.RLock()
	cached, ok := s.cache[path]
	s.mu.RUnlock()
	if ok {
		return cached
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Failed to load prompt file")
		}
		return ""
	}

	text := strings.TrimSpace(string(content))
	s.mu.Lock()
	s.cache[path] = text
	s.mu.Unlock()
	return text
}
