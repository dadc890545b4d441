package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seo-agents/backend/internal/errors"
)

type rankedTopic struct {
	Keyword string `json:"keyword" validate:"required"`
	Volume  int    `json:"volume" validate:"min=0"`
}

type rankedOutput struct {
	Topics []rankedTopic `json:"topics" validate:"max=2,dive"`
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare object", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "Here you go:\n```json\n{\"a\":1}\n```\nThanks", want: `{"a":1}`},
		{name: "prose around array", in: `Findings: [{"x":1}] end`, want: `[{"x":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ExtractJSON("no json here")
	assert.Error(t, err)
}

func TestDecodeStrict(t *testing.T) {
	out, err := DecodeStrict[rankedOutput]("rank", `{"topics":[{"keyword":"implants","volume":40}]}`)
	require.NoError(t, err)
	assert.Equal(t, "implants", out.Topics[0].Keyword)

	_, err = DecodeStrict[rankedOutput]("rank", `{"topics":[{"keyword":"","volume":40}]}`)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeOutputValidation))

	_, err = DecodeStrict[rankedOutput]("rank", `{"topics":[{"keyword":"a"},{"keyword":"b"},{"keyword":"c"}]}`)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeOutputValidation))

	_, err = DecodeStrict[rankedOutput]("rank", `sorry, I cannot help`)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeOutputValidation))
}

func TestDecodeStrict_Slice(t *testing.T) {
	items, err := DecodeStrict[[]rankedTopic]("list", `[{"keyword":"a","volume":1}]`)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = DecodeStrict[[]rankedTopic]("list", `[{"keyword":"a","volume":-1}]`)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeOutputValidation))
}

func TestCompleterFunc_RejectsMissingBudget(t *testing.T) {
	called := false
	c := CompleterFunc(func(context.Context, Prompt, int) (string, error) {
		called = true
		return "ok", nil
	})

	_, err := c.Complete(context.Background(), Prompt{User: "hi"}, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeOutputBudget))
	assert.False(t, called)

	text, err := c.Complete(context.Background(), Prompt{User: "hi"}, 10)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestNewOpenAICompleter_RequiresKey(t *testing.T) {
	_, err := NewOpenAICompleter(OpenAIConfig{Model: "gpt-4o-mini"}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigInvalid))
}
