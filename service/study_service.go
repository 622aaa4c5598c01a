package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tieubaoca/pdf-quizbot/types"
)

// ErrNoDocumentText is returned when there is no text to build a prompt from.
var ErrNoDocumentText = errors.New("no document text")

const (
	summaryPrompt = "Summarize the following document for a student:\n\n"
	quizPrompt    = "Generate a mixed-style quiz (including multiple-choice and open-ended questions) based on the following text:\n\n"
)

// StudyService builds the summary and quiz prompts and sends them to the model.
type StudyService struct {
	ai AIService
}

func NewStudyService(ai AIService) *StudyService {
	return &StudyService{ai: ai}
}

func (s *StudyService) Summarize(ctx context.Context, text string) (string, error) {
	return s.generate(ctx, summaryPrompt, text, "summary")
}

func (s *StudyService) CreateQuiz(ctx context.Context, text string) (string, error) {
	return s.generate(ctx, quizPrompt, text, "quiz")
}

// SummarizeStream is Summarize with the answer also passed to handler as it
// is generated.
func (s *StudyService) SummarizeStream(ctx context.Context, text string, handler types.StreamHandler) (string, error) {
	return s.generateStream(ctx, summaryPrompt, text, "summary", handler)
}

func (s *StudyService) CreateQuizStream(ctx context.Context, text string, handler types.StreamHandler) (string, error) {
	return s.generateStream(ctx, quizPrompt, text, "quiz", handler)
}

func (s *StudyService) generate(ctx context.Context, prefix, text, what string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNoDocumentText
	}
	out, err := s.ai.Generate(ctx, prefix+text)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", what, err)
	}
	return out, nil
}

func (s *StudyService) generateStream(ctx context.Context, prefix, text, what string, handler types.StreamHandler) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNoDocumentText
	}
	var sb strings.Builder
	err := s.ai.GenerateStream(ctx, prefix+text, func(chunk string) {
		sb.WriteString(chunk)
		handler(chunk)
	})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", what, err)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("generate %s: %w", what, ErrEmptyResponse)
	}
	return sb.String(), nil
}
