package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sethvargo/go-retry"

	apperrors "seo-agents/backend/internal/errors"
	"seo-agents/backend/internal/logging"
)

// OpenAIConfig configures the OpenAI chat completion client.
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	RetryAttempts int
}

// OpenAICompleter implements Completer with the openai-go SDK.
type OpenAICompleter struct {
	client  openai.Client
	model   string
	timeout time.Duration
	retries uint64
	logger  *logging.Logger
}

// NewOpenAICompleter creates a completer from config.
func NewOpenAICompleter(cfg OpenAIConfig, logger *logging.Logger) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.New(apperrors.CodeConfigInvalid, "openai api key missing; provide llm.api_key")
	}
	if cfg.Model == "" {
		return nil, apperrors.New(apperrors.CodeConfigInvalid, "llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	retries := uint64(0)
	if cfg.RetryAttempts > 0 {
		retries = uint64(cfg.RetryAttempts)
	}
	return &OpenAICompleter{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		retries: retries,
		logger:  logger.With("component", "llm", "model", cfg.Model),
	}, nil
}

// Complete sends the prompt as a chat completion. Transport failures, 429s
// and 5xx responses are retried with exponential backoff.
func (o *OpenAICompleter) Complete(ctx context.Context, prompt Prompt, maxOutputTokens int) (string, error) {
	if err := CheckBudget(maxOutputTokens); err != nil {
		return "", err
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(o.model),
		Messages:            messages(prompt),
		MaxCompletionTokens: openai.Int(int64(maxOutputTokens)),
	}

	backoff := retry.WithMaxRetries(o.retries, retry.NewExponential(500*time.Millisecond))
	var text string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := o.client.Chat.Completions.New(ctx, params)
		if err != nil {
			if retryable(err) {
				o.logger.Warn("Completion failed, retrying", "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		if len(resp.Choices) == 0 {
			return apperrors.ProviderResponse("openai", "chat completion", "empty choices")
		}
		text = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		if apperrors.Code(err) != "" {
			return "", err
		}
		return "", apperrors.ProviderUnavailable("openai", "chat completion", err)
	}
	return text, nil
}

func messages(prompt Prompt) []openai.ChatCompletionMessageParamUnion {
	msgs := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(prompt.System)}
	for _, h := range prompt.History {
		switch h.Role {
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	return append(msgs, openai.UserMessage(prompt.User))
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
