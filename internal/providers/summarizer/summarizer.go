package summarizer

import (
	"context"

	"github.com/cfcdist/orderflow/internal/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

const placeholder = "Summary unavailable."

const systemPrompt = "You are an operations assistant for a cabinetry distributor. " +
	"Summarize the current order pipeline in a few short sentences: call out stuck orders, " +
	"unpaid shipments and anything needing manual review. Plain text, no markdown."

// Summarizer turns a structured pipeline snapshot into a short plain-text
// briefing. Any failure degrades to a placeholder; a summary is never worth
// failing a request over.
type Summarizer struct {
	log        *zap.Logger
	client     openai.Client
	model      string
	configured bool
}

func New(cfg config.SummarizerConfig, log *zap.Logger) *Summarizer {
	s := &Summarizer{
		log:        log.Named("providers.summarizer"),
		model:      cfg.Model,
		configured: cfg.Configured(),
	}
	if s.model == "" {
		s.model = openai.ChatModelGPT4oMini
	}
	if s.configured {
		s.client = openai.NewClient(option.WithAPIKey(cfg.APIKey))
	}
	return s
}

func (s *Summarizer) Configured() bool { return s.configured }

func (s *Summarizer) Summarize(ctx context.Context, snapshot string) string {
	if !s.configured {
		return placeholder
	}

	completion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(snapshot),
		},
	})
	if err != nil {
		s.log.Warn("summary generation failed", zap.Error(err))
		return placeholder
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return placeholder
	}
	return completion.Choices[0].Message.Content
}
