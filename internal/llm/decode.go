package llm

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "seo-agents/backend/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ExtractJSON returns the JSON value embedded in a model response, dropping
// markdown code fences and any prose around the outermost object or array.
func ExtractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			s = strings.TrimSpace(rest[:end])
		}
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", errors.New("no JSON value in response")
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return "", errors.New("unterminated JSON value in response")
	}
	return s[start : end+1], nil
}

// DecodeStrict parses a model response into T and validates it against T's
// struct tags. Any failure is an output validation error, never a provider
// error.
func DecodeStrict[T any](operation, text string) (T, error) {
	var out T
	raw, err := ExtractJSON(text)
	if err != nil {
		return out, apperrors.OutputValidation(operation, err)
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, apperrors.OutputValidation(operation, err)
	}
	if err := Validate(out); err != nil {
		return out, apperrors.OutputValidation(operation, err)
	}
	return out, nil
}

// Validate runs struct-tag validation on v. Slices are validated per element.
func Validate(v any) error {
	if k := reflect.ValueOf(v).Kind(); k == reflect.Slice || k == reflect.Array {
		return validate.Var(v, "dive")
	}
	return validate.Struct(v)
}
