package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tieubaoca/pdf-quizbot/config"
	"github.com/tieubaoca/pdf-quizbot/types"
)

const DefaultGeminiModel = config.DefaultGeminiModel

type responseStream interface {
	Next() (*genai.GenerateContentResponse, error)
}

type GeminiService struct {
	apiKeys    []string
	currentKey int
	modelName  string
	client     *genai.Client
	model      *genai.GenerativeModel
	log        *zap.Logger
	mu         sync.Mutex

	openStream func(ctx context.Context, prompt string) responseStream
}

func NewGeminiService(ctx context.Context, apiKeys []string, modelName string, log *zap.Logger) (*GeminiService, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("no API keys provided")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	if log == nil {
		log = zap.NewNop()
	}

	service := &GeminiService{
		apiKeys:   apiKeys,
		modelName: modelName,
		log:       log,
	}
	service.openStream = func(ctx context.Context, prompt string) responseStream {
		return service.currentModel().GenerateContentStream(ctx, genai.Text(prompt))
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	if err := service.initClient(ctx); err != nil {
		return nil, err
	}
	return service, nil
}

// initClient must be called with mu held.
func (s *GeminiService) initClient(ctx context.Context) error {
	client, err := genai.NewClient(ctx, option.WithAPIKey(s.apiKeys[s.currentKey]))
	if err != nil {
		return err
	}
	s.client = client
	s.model = client.GenerativeModel(s.modelName)
	return nil
}

func (s *GeminiService) rotateAPIKey(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentKey = (s.currentKey + 1) % len(s.apiKeys)
	s.log.Warn("rotating gemini API key", zap.Int("key_index", s.currentKey))
	if err := s.client.Close(); err != nil {
		s.log.Warn("closing gemini client", zap.Error(err))
	}
	return s.initClient(ctx)
}

func (s *GeminiService) currentModel() *genai.GenerativeModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// Generate sends prompt to the model. A failed call is retried once with the
// next API key.
func (s *GeminiService) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.currentModel().GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		s.log.Warn("gemini generate failed", zap.Error(err))
		if err := s.rotateAPIKey(ctx); err != nil {
			return "", err
		}
		resp, err = s.currentModel().GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
	}

	content := responseText(resp)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// GenerateStream streams the answer to handler chunk by chunk. A stream that
// fails before producing any text is retried once with the next API key;
// after the first chunk the error is returned as is.
func (s *GeminiService) GenerateStream(ctx context.Context, prompt string, handler types.StreamHandler) error {
	emitted, err := drainStream(s.openStream(ctx, prompt), handler)
	if err == nil || emitted {
		return err
	}

	s.log.Warn("gemini stream failed", zap.Error(err))
	if err := s.rotateAPIKey(ctx); err != nil {
		return err
	}
	_, err = drainStream(s.openStream(ctx, prompt), handler)
	return err
}

// drainStream reports whether any text reached handler before the stream
// ended.
func drainStream(stream responseStream, handler types.StreamHandler) (bool, error) {
	emitted := false
	for {
		resp, err := stream.Next()
		if errors.Is(err, iterator.Done) {
			return emitted, nil
		}
		if err != nil {
			return emitted, err
		}
		if text := responseText(resp); text != "" {
			emitted = true
			handler(text)
		}
	}
}

func (s *GeminiService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}
