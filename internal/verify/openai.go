package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/francis4531/Offerwise-sub000/internal/entity"
)

// OpenAIVerifier asks a chat model whether a finding's severity and cost
// range are plausible given its verbatim evidence quote.
type OpenAIVerifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewOpenAIVerifier(apiKey, model string, timeout time.Duration, logger *slog.Logger) *OpenAIVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIVerifier{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

const verifySystemPrompt = `You are a home-repair cost reviewer. Given one inspection finding with a verbatim quote, category, severity and an estimated cost range in USD, answer with exactly one word: CONFIRM if the severity and cost range are plausible for the quoted issue, or REJECT otherwise.`

func (v *OpenAIVerifier) VerifyFinding(ctx context.Context, f entity.Finding) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       v.model,
		Temperature: 0,
		MaxTokens:   4,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: verifySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(
				"category: %s\nseverity: %s\ncost range: $%.0f-$%.0f\nquote: %q",
				f.Category, f.Severity, f.CostLow, f.CostHigh, f.Evidence)},
		},
	})
	if err != nil {
		v.logger.Warn("verify.request_failed", "category", f.Category, "error", err)
		return false, err
	}
	if len(resp.Choices) == 0 {
		return false, fmt.Errorf("verify: empty response")
	}
	answer := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
	confirmed := strings.HasPrefix(answer, "CONFIRM")
	v.logger.Info("verify.done",
		"category", f.Category,
		"confirmed", confirmed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return confirmed, nil
}
