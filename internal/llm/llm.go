// Package llm is the generative-text provider used by the agent workflows.
// Every call carries an explicit output-token budget.
package llm

import (
	"context"

	apperrors "seo-agents/backend/internal/errors"
)

// Message is one prior turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Prompt is a single completion request.
type Prompt struct {
	System  string
	User    string
	History []Message
}

// Completer produces text for a prompt within maxOutputTokens.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt, maxOutputTokens int) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt Prompt, maxOutputTokens int) (string, error)

// Complete calls f after checking the budget.
func (f CompleterFunc) Complete(ctx context.Context, prompt Prompt, maxOutputTokens int) (string, error) {
	if err := CheckBudget(maxOutputTokens); err != nil {
		return "", err
	}
	return f(ctx, prompt, maxOutputTokens)
}

// CheckBudget rejects calls made without a positive token budget.
func CheckBudget(maxOutputTokens int) error {
	if maxOutputTokens <= 0 {
		return apperrors.Newf(apperrors.CodeOutputBudget, "completion requires a positive output token budget, got %d", maxOutputTokens).
			WithDetail("max_output_tokens", maxOutputTokens)
	}
	return nil
}
