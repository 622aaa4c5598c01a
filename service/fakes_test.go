package service

import (
	"context"
	"sync"

	"github.com/tieubaoca/pdf-quizbot/types"
)

// fakeAI records prompts and answers from a function. GenerateStream splits
// the answer into chunks of chunkSize bytes (whole answer when zero).
type fakeAI struct {
	mu        sync.Mutex
	prompts   []string
	answer    func(prompt string) (string, error)
	chunkSize int
	closed    bool
}

func (f *fakeAI) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.answer == nil {
		return "ok", nil
	}
	return f.answer(prompt)
}

func (f *fakeAI) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *fakeAI) GenerateStream(ctx context.Context, prompt string, handler types.StreamHandler) error {
	out, err := f.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	size := f.chunkSize
	if size <= 0 {
		size = len(out)
	}
	for len(out) > 0 {
		n := min(size, len(out))
		handler(out[:n])
		out = out[n:]
	}
	return nil
}

func (f *fakeAI) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
