package advisor

import (
	"context"
	"fmt"
	"time"

	"stockcast/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// ForecastQuerier provides stored forecasts for the advisor's context.
type ForecastQuerier interface {
	GetLatestForecasts(ctx context.Context, symbol string) ([]domain.EnsembleForecast, error)
}

// AccuracyQuerier provides evaluation history for the advisor's context.
type AccuracyQuerier interface {
	GetAccuracyHistory(ctx context.Context, symbol string, limit int) ([]domain.AccuracyRecord, error)
}

// LeaderboardQuerier provides the cross-symbol ranking used when the
// user does not name a symbol.
type LeaderboardQuerier interface {
	Leaderboard(ctx context.Context, now time.Time) ([]domain.LeaderboardEntry, error)
}

// ConversationStore persists and retrieves conversation messages.
type ConversationStore interface {
	AppendMessage(ctx context.Context, chatID int64, role, content string) error
	RecentMessages(ctx context.Context, chatID int64, limit int) ([]domain.ConversationMessage, error)
}

type AdvisorService struct {
	tracer     trace.Tracer
	llm        LLMClient
	forecasts  ForecastQuerier
	accuracy   AccuracyQuerier
	reports    LeaderboardQuerier
	convStore  ConversationStore
	model      string
	maxHistory int
}

func NewAdvisorService(
	tracer trace.Tracer,
	llm LLMClient,
	forecasts ForecastQuerier,
	accuracy AccuracyQuerier,
	reports LeaderboardQuerier,
	convStore ConversationStore,
	model string,
	maxHistory int,
) *AdvisorService {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if maxHistory <= 0 {
		maxHistory = 20
	}
	return &AdvisorService{
		tracer:     tracer,
		llm:        llm,
		forecasts:  forecasts,
		accuracy:   accuracy,
		reports:    reports,
		convStore:  convStore,
		model:      model,
		maxHistory: maxHistory,
	}
}

func (s *AdvisorService) Ask(ctx context.Context, chatID int64, userMessage string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.ask")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat_id", chatID))

	if err := s.convStore.AppendMessage(ctx, chatID, "user", userMessage); err != nil {
		log.Warn().Err(err).Msg("failed to store user message")
	}

	mentionedSymbols := ExtractSymbols(userMessage)

	forecastContext, err := s.gatherContext(ctx, mentionedSymbols)
	if err != nil {
		log.Warn().Err(err).Msg("failed to gather forecast context")
		forecastContext = "Engine data temporarily unavailable."
	}

	systemPrompt := BuildSystemPrompt(forecastContext)

	history, err := s.convStore.RecentMessages(ctx, chatID, s.maxHistory)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load conversation history")
		history = nil
	}

	messages := s.buildMessages(systemPrompt, history)

	reply, err := s.callLLM(ctx, messages)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("advisor unavailable: %w", err)
	}

	if err := s.convStore.AppendMessage(ctx, chatID, "assistant", reply); err != nil {
		log.Warn().Err(err).Msg("failed to store assistant reply")
	}

	return reply, nil
}

func (s *AdvisorService) gatherContext(ctx context.Context, symbols []string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.gather-context")
	defer span.End()

	var forecasts []domain.EnsembleForecast
	var records []domain.AccuracyRecord
	var entries []domain.LeaderboardEntry

	if len(symbols) > 0 {
		for _, sym := range symbols {
			fs, err := s.forecasts.GetLatestForecasts(ctx, sym)
			if err == nil {
				forecasts = append(forecasts, fs...)
			}
			recs, err := s.accuracy.GetAccuracyHistory(ctx, sym, 3)
			if err == nil {
				records = append(records, recs...)
			}
		}
	} else {
		var err error
		entries, err = s.reports.Leaderboard(ctx, time.Now().UTC())
		if err != nil {
			return "", err
		}
	}

	return FormatForecastContext(forecasts, records, entries), nil
}

func (s *AdvisorService) buildMessages(
	systemPrompt string,
	history []domain.ConversationMessage,
) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)

	messages = append(messages, openai.SystemMessage(systemPrompt))

	// History is already oldest-first and bounded by RecentMessages.
	for _, msg := range history {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}

	return messages
}

func (s *AdvisorService) callLLM(
	ctx context.Context,
	messages []openai.ChatCompletionMessageParamUnion,
) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.llm-call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", s.model),
		attribute.Int("llm.message_count", len(messages)),
	)

	completion, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
