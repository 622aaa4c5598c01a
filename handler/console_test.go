package handler

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tieubaoca/pdf-quizbot/internal/pdftest"
	"github.com/tieubaoca/pdf-quizbot/types"
)

func TestConsoleSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lesson.pdf")
	doc := pdftest.Build(pdftest.TextPage("Test"))
	require.NoError(t, os.WriteFile(path, doc, 0o600))

	input := strings.Join([]string{
		"",
		"help",
		"upload",
		"upload /does/not/exist.pdf",
		"upload " + path,
		"quiz",
		"quit",
		"quiz",
	}, "\n")
	var out bytes.Buffer
	src := NewConsoleSource(strings.NewReader(input), &out, 1<<20)
	ctx := context.Background()

	ev, err := src.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, ev.Upload)
	assert.Equal(t, "lesson.pdf", ev.Upload.Name)
	assert.Equal(t, doc, ev.Upload.Data)

	ev, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ActionCreateQuiz, ev.Action)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)

	printed := out.String()
	assert.Contains(t, printed, consoleHelp)
	assert.Contains(t, printed, "usage: upload <file.pdf>")
	assert.Contains(t, printed, "cannot read /does/not/exist.pdf")
}

func TestConsoleSource_EndOfInput(t *testing.T) {
	src := NewConsoleSource(strings.NewReader(""), io.Discard, 0)
	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestConsoleSource_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	src := NewConsoleSource(pr, io.Discard, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsoleSink(t *testing.T) {
	var out bytes.Buffer
	sink := NewConsoleSink(&out)
	ctx := context.Background()

	require.NoError(t, sink.Send(ctx, types.ChatMessage{Kind: types.MessageKindAsk, Content: "Please upload a PDF file to begin.", MaxSizeMB: 100}))
	require.NoError(t, sink.Send(ctx, types.ChatMessage{Kind: types.MessageKindError, Content: "broken"}))
	require.NoError(t, sink.Send(ctx, types.ChatMessage{
		Kind:    types.MessageKindInfo,
		Content: "Would you like to create a quiz from this document?",
		Actions: []types.Action{{Name: types.ActionCreateQuiz, Label: "Create Quiz"}},
	}))

	assert.Equal(t, "bot> Please upload a PDF file to begin.\n"+
		"     (type: upload <file.pdf>, max 100 MB)\n"+
		"bot! broken\n"+
		"bot> Would you like to create a quiz from this document?\n"+
		"     [create_quiz] Create Quiz (type: quiz)\n", out.String())
}

func TestConsoleSink_Streaming(t *testing.T) {
	var out bytes.Buffer
	sink := NewConsoleSink(&out)
	ctx := context.Background()

	msgs := []types.ChatMessage{
		{Kind: types.MessageKindSummary, Content: "**Summary:**\nIt is ", Partial: true},
		{Kind: types.MessageKindSummary, Content: "about cells.", Partial: true},
		{Kind: types.MessageKindSummary, Content: "**Summary:**\nIt is about cells."},
		{Kind: types.MessageKindQuiz, Content: "Q1.", Partial: true},
		{Kind: types.MessageKindError, Content: "stream broke"},
	}
	for _, m := range msgs {
		require.NoError(t, sink.Send(ctx, m))
	}

	assert.Equal(t, "bot> **Summary:**\nIt is about cells.\n"+
		"bot> Q1.\n"+
		"bot! stream broke\n", out.String())
}
