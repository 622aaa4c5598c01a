package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tieubaoca/pdf-quizbot/database"
	"github.com/tieubaoca/pdf-quizbot/types"
	"github.com/tieubaoca/pdf-quizbot/utils"
)

const (
	msgAskUpload     = "Please upload a PDF file to begin."
	msgOfferQuiz     = "Would you like to create a quiz from this document?"
	msgNoText        = "Sorry, I couldn't find the document text to create a quiz."
	msgCreatingQuiz  = "Creating your quiz..."
	msgSummaryPrefix = "**Summary:**\n"
)

var quizAction = types.Action{
	Name:        types.ActionCreateQuiz,
	Label:       "Create Quiz",
	Description: "Generate a quiz from the PDF content",
}

// EventSource yields client events. Next returns io.EOF once the client is
// gone and must return ctx.Err() when ctx is done.
type EventSource interface {
	Next(ctx context.Context) (types.Event, error)
}

// MessageSink delivers bot messages to the client.
type MessageSink interface {
	Send(ctx context.Context, msg types.ChatMessage) error
}

// TextExtractor turns document bytes into prompt-ready text.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

type ConversationConfig struct {
	MaxUploadSize int64
	UploadTimeout time.Duration
	// UploadDir keeps a copy of every accepted upload under
	// UploadDir/<session> when set.
	UploadDir string
	// Stream sends model output as partial messages while it is generated.
	Stream bool
}

// Conversation drives one chat session: it waits for a PDF, summarizes it,
// and then answers quiz requests. Handle and Run must not be called
// concurrently.
type Conversation struct {
	id        string
	extractor TextExtractor
	study     *StudyService
	store     database.SessionStore
	sink      MessageSink
	cfg       ConversationConfig
	log       *zap.Logger

	mu    sync.RWMutex
	state types.ConversationState
}

func NewConversation(
	id string,
	extractor TextExtractor,
	study *StudyService,
	store database.SessionStore,
	sink MessageSink,
	cfg ConversationConfig,
	log *zap.Logger,
) *Conversation {
	if log == nil {
		log = zap.NewNop()
	}
	return &Conversation{
		id:        id,
		extractor: extractor,
		study:     study,
		store:     store,
		sink:      sink,
		cfg:       cfg,
		log:       log.With(zap.String("session", id)),
		state:     types.StateAwaitingUpload,
	}
}

func (c *Conversation) ID() string {
	return c.id
}

func (c *Conversation) State() types.ConversationState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Conversation) setState(s types.ConversationState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != s {
		c.log.Debug("conversation state changed", zap.String("from", string(c.state)), zap.String("to", string(s)))
	}
	c.state = s
}

// Start opens the conversation. A session that already holds document text
// resumes in DocumentReady; otherwise the user is asked for a file.
func (c *Conversation) Start(ctx context.Context) error {
	text, ok, err := c.store.Get(ctx, c.id, database.KeyPDFText)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !ok || text == "" {
		c.setState(types.StateAwaitingUpload)
		return c.askForUpload(ctx)
	}

	name, _, err := c.store.Get(ctx, c.id, database.KeyPDFName)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	c.setState(types.StateDocumentReady)
	if err := c.send(ctx, types.MessageKindInfo, fmt.Sprintf("Resuming with `%s`.", name)); err != nil {
		return err
	}
	return c.offerQuiz(ctx)
}

// Run starts the conversation and handles events until src is exhausted or
// ctx is done. While waiting for an upload the prompt is repeated every
// UploadTimeout.
func (c *Conversation) Run(ctx context.Context, src EventSource) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	for {
		ev, err := c.next(ctx, src)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			c.log.Debug("upload wait timed out, asking again")
			if err := c.askForUpload(ctx); err != nil {
				return err
			}
			continue
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			return err
		}

		if err := c.Handle(ctx, ev); err != nil {
			return err
		}
	}
}

func (c *Conversation) next(ctx context.Context, src EventSource) (types.Event, error) {
	if c.State() != types.StateAwaitingUpload || c.cfg.UploadTimeout <= 0 {
		return src.Next(ctx)
	}
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.UploadTimeout)
	defer cancel()
	return src.Next(waitCtx)
}

// Handle applies one event. User-facing failures are reported through the
// sink; the returned error is only non-nil when the sink or session store
// fails.
func (c *Conversation) Handle(ctx context.Context, ev types.Event) error {
	switch {
	case ev.Upload != nil:
		return c.handleUpload(ctx, ev.Upload)
	case ev.Action == types.ActionCreateQuiz:
		return c.handleCreateQuiz(ctx)
	case ev.Action != "":
		return c.send(ctx, types.MessageKindError, fmt.Sprintf("Unknown action `%s`.", ev.Action))
	default:
		return nil
	}
}

func (c *Conversation) handleUpload(ctx context.Context, up *types.Upload) error {
	if err := utils.ValidatePDF(up.MIMEType, up.Data, c.cfg.MaxUploadSize); err != nil {
		c.log.Info("upload rejected", zap.String("file", up.Name), zap.Error(err))
		if err := c.send(ctx, types.MessageKindError, uploadErrorMessage(up.Name, err)); err != nil {
			return err
		}
		return c.reaskIfWaiting(ctx)
	}

	if err := c.send(ctx, types.MessageKindInfo, fmt.Sprintf("Processing `%s`...", up.Name)); err != nil {
		return err
	}

	text, err := c.extractor.Extract(up.Data)
	if err != nil {
		c.log.Info("extraction failed", zap.String("file", up.Name), zap.Error(err))
		if err := c.send(ctx, types.MessageKindError, fmt.Sprintf("Could not read `%s`: it is not a valid PDF document.", up.Name)); err != nil {
			return err
		}
		return c.reaskIfWaiting(ctx)
	}
	if text == "" {
		if err := c.send(ctx, types.MessageKindError, fmt.Sprintf("No text could be extracted from `%s`.", up.Name)); err != nil {
			return err
		}
		return c.reaskIfWaiting(ctx)
	}

	c.keepUpload(up)

	if err := c.store.Set(ctx, c.id, database.KeyPDFText, text); err != nil {
		return fmt.Errorf("save document text: %w", err)
	}
	if err := c.store.Set(ctx, c.id, database.KeyPDFName, up.Name); err != nil {
		return fmt.Errorf("save document name: %w", err)
	}
	c.setState(types.StateDocumentReady)
	c.log.Info("document ready", zap.String("file", up.Name), zap.Int("chars", len(text)))

	summary, err := c.generate(ctx, types.MessageKindSummary, msgSummaryPrefix, text, c.study.Summarize, c.study.SummarizeStream)
	if err != nil {
		var se *sinkError
		if errors.As(err, &se) {
			return se.err
		}
		c.log.Error("summary failed", zap.Error(err))
		if err := c.send(ctx, types.MessageKindError, "Sorry, I couldn't summarize the document right now."); err != nil {
			return err
		}
	} else if err := c.send(ctx, types.MessageKindSummary, msgSummaryPrefix+summary); err != nil {
		return err
	}

	return c.offerQuiz(ctx)
}

func (c *Conversation) handleCreateQuiz(ctx context.Context) error {
	text, ok, err := c.store.Get(ctx, c.id, database.KeyPDFText)
	if err != nil {
		return fmt.Errorf("load document text: %w", err)
	}
	if !ok || text == "" {
		return c.send(ctx, types.MessageKindError, msgNoText)
	}

	if err := c.send(ctx, types.MessageKindInfo, msgCreatingQuiz); err != nil {
		return err
	}

	quiz, err := c.generate(ctx, types.MessageKindQuiz, "", text, c.study.CreateQuiz, c.study.CreateQuizStream)
	if err != nil {
		var se *sinkError
		if errors.As(err, &se) {
			return se.err
		}
		c.log.Error("quiz failed", zap.Error(err))
		return c.send(ctx, types.MessageKindError, "Sorry, I couldn't create a quiz right now.")
	}
	return c.send(ctx, types.MessageKindQuiz, quiz)
}

// sinkError marks a sink failure that happened while streaming, as opposed
// to a model failure.
type sinkError struct{ err error }

func (e *sinkError) Error() string { return e.err.Error() }
func (e *sinkError) Unwrap() error { return e.err }

// generate runs a model call. With streaming enabled each chunk is sent as a
// partial message of kind, the first one carrying prefix. A sink failure
// while streaming is returned as *sinkError.
func (c *Conversation) generate(
	ctx context.Context,
	kind, prefix, text string,
	whole func(context.Context, string) (string, error),
	stream func(context.Context, string, types.StreamHandler) (string, error),
) (string, error) {
	if !c.cfg.Stream {
		return whole(ctx, text)
	}

	var sinkErr error
	first := true
	out, err := stream(ctx, text, func(chunk string) {
		if sinkErr != nil {
			return
		}
		if first {
			chunk, first = prefix+chunk, false
		}
		sinkErr = c.sink.Send(ctx, types.ChatMessage{Kind: kind, Content: chunk, Partial: true})
	})
	if sinkErr != nil {
		return "", &sinkError{err: sinkErr}
	}
	return out, err
}

// keepUpload stores a copy of an accepted upload when UploadDir is set.
func (c *Conversation) keepUpload(up *types.Upload) {
	if c.cfg.UploadDir == "" {
		return
	}
	dir := filepath.Join(c.cfg.UploadDir, utils.SanitizeFileName(c.id))
	path, err := utils.SaveWithTimestamp(dir, up.Name, up.Data)
	if err != nil {
		c.log.Warn("failed to keep upload", zap.Error(err))
		return
	}
	c.log.Debug("upload saved", zap.String("path", path))
}

func (c *Conversation) askForUpload(ctx context.Context) error {
	var maxMB int64
	if c.cfg.MaxUploadSize > 0 {
		maxMB = c.cfg.MaxUploadSize >> 20
	}
	return c.sink.Send(ctx, types.ChatMessage{
		Kind:      types.MessageKindAsk,
		Content:   msgAskUpload,
		Accept:    []string{utils.PDFMimeType},
		MaxSizeMB: maxMB,
	})
}

func (c *Conversation) reaskIfWaiting(ctx context.Context) error {
	if c.State() != types.StateAwaitingUpload {
		return nil
	}
	return c.askForUpload(ctx)
}

func (c *Conversation) offerQuiz(ctx context.Context) error {
	return c.sink.Send(ctx, types.ChatMessage{
		Kind:    types.MessageKindInfo,
		Content: msgOfferQuiz,
		Actions: []types.Action{quizAction},
	})
}

func (c *Conversation) send(ctx context.Context, kind, content string) error {
	return c.sink.Send(ctx, types.ChatMessage{Kind: kind, Content: content})
}

func uploadErrorMessage(name string, err error) string {
	switch {
	case errors.Is(err, utils.ErrFileTooLarge):
		return fmt.Sprintf("`%s` is too large.", name)
	case errors.Is(err, utils.ErrUnsupportedFile):
		return fmt.Sprintf("`%s` is not a PDF file.", name)
	default:
		return fmt.Sprintf("Could not accept `%s`.", name)
	}
}
