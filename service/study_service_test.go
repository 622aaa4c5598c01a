package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tieubaoca/pdf-quizbot/config"
)

func TestStudyService_Prompts(t *testing.T) {
	ai := &fakeAI{answer: func(string) (string, error) { return "generated", nil }}
	svc := NewStudyService(ai)
	ctx := context.Background()

	summary, err := svc.Summarize(ctx, "Photosynthesis converts light.")
	require.NoError(t, err)
	assert.Equal(t, "generated", summary)

	quiz, err := svc.CreateQuiz(ctx, "Photosynthesis converts light.")
	require.NoError(t, err)
	assert.Equal(t, "generated", quiz)

	prompts := ai.Prompts()
	require.Len(t, prompts, 2)
	assert.Equal(t, "Summarize the following document for a student:\n\nPhotosynthesis converts light.", prompts[0])
	assert.Equal(t, "Generate a mixed-style quiz (including multiple-choice and open-ended questions) based on the following text:\n\nPhotosynthesis converts light.", prompts[1])
}

func TestStudyService_EmptyText(t *testing.T) {
	ai := &fakeAI{}
	svc := NewStudyService(ai)

	_, err := svc.Summarize(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNoDocumentText)
	_, err = svc.CreateQuiz(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoDocumentText)
	assert.Empty(t, ai.Prompts())
}

func TestStudyService_ModelError(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc := NewStudyService(&fakeAI{answer: func(string) (string, error) { return "", boom }})

	_, err := svc.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "generate summary")
}

func TestStudyService_Stream(t *testing.T) {
	ai := &fakeAI{chunkSize: 4, answer: func(string) (string, error) { return "Q1. What is light?", nil }}
	svc := NewStudyService(ai)

	var chunks []string
	quiz, err := svc.CreateQuizStream(context.Background(), "Photosynthesis converts light.", func(c string) { chunks = append(chunks, c) })
	require.NoError(t, err)
	assert.Equal(t, "Q1. What is light?", quiz)
	assert.Equal(t, []string{"Q1. ", "What", " is ", "ligh", "t?"}, chunks)
	assert.Equal(t, []string{quizPrompt + "Photosynthesis converts light."}, ai.Prompts())
}

func TestStudyService_StreamErrors(t *testing.T) {
	ctx := context.Background()
	noop := func(string) {}

	_, err := NewStudyService(&fakeAI{}).SummarizeStream(ctx, " ", noop)
	assert.ErrorIs(t, err, ErrNoDocumentText)

	_, err = NewStudyService(&fakeAI{answer: func(string) (string, error) { return "", nil }}).SummarizeStream(ctx, "text", noop)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	boom := errors.New("quota exceeded")
	_, err = NewStudyService(&fakeAI{answer: func(string) (string, error) { return "", boom }}).SummarizeStream(ctx, "text", noop)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "generate summary")
}

func TestNewAIService(t *testing.T) {
	ctx := context.Background()

	ai, err := NewAIService(ctx, &config.Config{Provider: config.ProviderOpenAI, AIEndpoint: "http://localhost:1234/v1"}, nil)
	require.NoError(t, err)
	require.IsType(t, &OpenAIService{}, ai)
	assert.Equal(t, config.DefaultOpenAIModel, ai.(*OpenAIService).model)
	assert.NoError(t, ai.Close())

	ai, err = NewAIService(ctx, &config.Config{Provider: config.ProviderGemini, GeminiAPIKey: "key"}, nil)
	require.NoError(t, err)
	require.IsType(t, &GeminiService{}, ai)
	assert.NoError(t, ai.Close())

	ai, err = NewAIService(ctx, &config.Config{Provider: config.ProviderGemini}, nil)
	assert.Error(t, err)
	assert.Nil(t, ai)

	_, err = NewAIService(ctx, &config.Config{Provider: "other"}, nil)
	assert.Error(t, err)
}
