// Package services wires the application's service graph at startup.
package services

import (
	"fmt"

	"github.com/draftwise/draftwise/internal/config"
	openaiinfra "github.com/draftwise/draftwise/internal/infrastructure/openai"
	redisinfra "github.com/draftwise/draftwise/internal/infrastructure/redis"
	"github.com/draftwise/draftwise/internal/services/advice"
	"github.com/draftwise/draftwise/internal/services/confidence"
	"github.com/draftwise/draftwise/internal/services/history"
	"github.com/draftwise/draftwise/internal/services/prompt"
	"github.com/draftwise/draftwise/internal/services/provider"
	"github.com/draftwise/draftwise/internal/services/searchpolicy"
	"github.com/rs/zerolog/log"
)

type Services struct {
	redisService      *redisinfra.Service
	openAIService     *openaiinfra.Service
	historyService    *history.Service
	promptService     *prompt.Service
	policyService     *searchpolicy.Service
	confidenceService *confidence.Service
	adviceService     *advice.Service
}

// InitializeServices constructs the full service graph. OpenAI is required;
// Redis and the confidence log are optional and degrade gracefully.
func InitializeServices() (*Services, error) {
	log.Info().Msg("Initializing core services")

	redisService := redisinfra.NewService()

	historyService := history.NewService(redisService)
	promptService := prompt.NewService()
	policyService := searchpolicy.NewService()

	confidenceService, err := confidence.NewService(config.GetConfidenceDBPath())
	if err != nil {
		log.Warn().Err(err).Msg("Confidence log unavailable - responses will not be logged")
		confidenceService = nil
	}

	openAIService := openaiinfra.NewService()
	if openAIService == nil {
		return nil, fmt.Errorf("OpenAI service is required for core functionality")
	}

	modelProvider, err := provider.NewOpenAI(openAIService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model provider: %w", err)
	}

	adviceService, err := advice.NewService(
		modelProvider,
		historyService,
		promptService,
		policyService,
		confidenceService,
		config.GetDefaultModel(),
		advice.Timeouts{
			FirstByte: config.GetFirstByteTimeout(),
			Idle:      config.GetStreamIdleTimeout(),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize advice service: %w", err)
	}

	log.Info().Msg("All services initialized successfully")

	return &Services{
		redisService:      redisService,
		openAIService:     openAIService,
		historyService:    historyService,
		promptService:     promptService,
		policyService:     policyService,
		confidenceService: confidenceService,
		adviceService:     adviceService,
	}, nil
}

// Shutdown releases held resources.
func (s *Services) Shutdown() {
	if s.confidenceService != nil {
		if err := s.confidenceService.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close confidence log")
		}
	}
	if s.redisService != nil {
		if err := s.redisService.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
}

// GetAdviceService returns the advice service
func (s *Services) GetAdviceService() *advice.Service {
	return s.adviceService
}

// GetConfidenceService returns the confidence service, possibly nil
func (s *Services) GetConfidenceService() *confidence.Service {
	return s.confidenceService
}

// GetHistoryService returns the history service
func (s *Services) GetHistoryService() *history.Service {
	return s.historyService
}
