package service

import (
	"context"
	"errors"
	"io"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/tieubaoca/pdf-quizbot/config"
	"github.com/tieubaoca/pdf-quizbot/types"
)

// OpenAIService talks to any OpenAI-compatible chat completion endpoint.
type OpenAIService struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

func NewOpenAIService(baseURL string, apiKey, model string, log *zap.Logger) *OpenAIService {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if model == "" {
		model = config.DefaultOpenAIModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAIService{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		log:    log,
	}
}

func (s *OpenAIService) request(prompt string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
}

func (s *OpenAIService) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, s.request(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *OpenAIService) GenerateStream(ctx context.Context, prompt string, handler types.StreamHandler) error {
	req := s.request(prompt)
	req.Stream = true
	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			s.log.Warn("openai stream failed", zap.Error(err))
			return err
		}
		if len(resp.Choices) > 0 && resp.Choices[0].Delta.Content != "" {
			handler(resp.Choices[0].Delta.Content)
		}
	}
}

// Close is a no-op; the HTTP client holds no resources of its own.
func (s *OpenAIService) Close() error {
	return nil
}
