package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
)

// fakeStream yields chunks and then err (iterator.Done when nil).
type fakeStream struct {
	chunks []string
	err    error
}

func (f *fakeStream) Next() (*genai.GenerateContentResponse, error) {
	if len(f.chunks) == 0 {
		if f.err != nil {
			return nil, f.err
		}
		return nil, iterator.Done
	}
	chunk := f.chunks[0]
	f.chunks = f.chunks[1:]
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text(chunk)}}},
	}}, nil
}

func newStreamingGemini(t *testing.T, streams ...*fakeStream) (*GeminiService, *int) {
	t.Helper()
	svc, err := NewGeminiService(context.Background(), []string{"key-a", "key-b"}, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	opened := 0
	svc.openStream = func(context.Context, string) responseStream {
		stream := streams[opened]
		opened++
		return stream
	}
	return svc, &opened
}

func TestNewGeminiService_NoKeys(t *testing.T) {
	svc, err := NewGeminiService(context.Background(), nil, "", nil)
	assert.Error(t, err)
	assert.Nil(t, svc)
}

func TestNewGeminiService_DefaultModel(t *testing.T) {
	svc, err := NewGeminiService(context.Background(), []string{"key-a", "key-b"}, "", nil)
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, DefaultGeminiModel, svc.modelName)
	assert.Equal(t, 0, svc.currentKey)

	require.NoError(t, svc.rotateAPIKey(context.Background()))
	assert.Equal(t, 1, svc.currentKey)
	require.NoError(t, svc.rotateAPIKey(context.Background()))
	assert.Equal(t, 0, svc.currentKey)
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name     string
		resp     *genai.GenerateContentResponse
		expected string
	}{
		{name: "nil response", resp: nil, expected: ""},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, expected: ""},
		{
			name: "joins text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello, "), genai.Text("student")}}},
				{Content: nil},
			}},
			expected: "Hello, student",
		},
		{
			name: "skips non-text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}, genai.Text("quiz")}}},
			}},
			expected: "quiz",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, responseText(tc.resp))
		})
	}
}

func TestGeminiService_GenerateStream(t *testing.T) {
	boom := errors.New("stream reset")

	tests := []struct {
		name    string
		streams []*fakeStream
		want    []string
		wantErr error
		opened  int
		key     int
	}{
		{
			name:    "complete stream",
			streams: []*fakeStream{{chunks: []string{"Hel", "lo"}}},
			want:    []string{"Hel", "lo"},
			opened:  1,
		},
		{
			name:    "failure before first chunk retries with next key",
			streams: []*fakeStream{{err: boom}, {chunks: []string{"Hello"}}},
			want:    []string{"Hello"},
			opened:  2,
			key:     1,
		},
		{
			name:    "failure after first chunk is not replayed",
			streams: []*fakeStream{{chunks: []string{"Hel"}, err: boom}, {chunks: []string{"Hel", "lo"}}},
			want:    []string{"Hel"},
			wantErr: boom,
			opened:  1,
		},
		{
			name:    "second failure is returned",
			streams: []*fakeStream{{err: boom}, {err: boom}},
			wantErr: boom,
			opened:  2,
			key:     1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, opened := newStreamingGemini(t, tc.streams...)

			var got []string
			err := svc.GenerateStream(context.Background(), "prompt", func(s string) { got = append(got, s) })
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.opened, *opened)
			assert.Equal(t, tc.key, svc.currentKey)
		})
	}
}
