package handler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tieubaoca/pdf-quizbot/types"
	"github.com/tieubaoca/pdf-quizbot/utils"
)

const consoleHelp = "commands: upload <file.pdf> | quiz | quit"

// ConsoleSource reads commands from a terminal, one per line.
type ConsoleSource struct {
	in      io.Reader
	out     io.Writer
	maxSize int64

	lines chan string
	once  sync.Once
}

func NewConsoleSource(in io.Reader, out io.Writer, maxSize int64) *ConsoleSource {
	return &ConsoleSource{in: in, out: out, maxSize: maxSize, lines: make(chan string)}
}

func (s *ConsoleSource) scan() {
	defer close(s.lines)
	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		s.lines <- scanner.Text()
	}
}

func (s *ConsoleSource) Next(ctx context.Context) (types.Event, error) {
	s.once.Do(func() { go s.scan() })

	for {
		var line string
		select {
		case l, ok := <-s.lines:
			if !ok {
				return types.Event{}, io.EOF
			}
			line = strings.TrimSpace(l)
		case <-ctx.Done():
			return types.Event{}, ctx.Err()
		}

		cmd, arg, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "":
			continue
		case "quit", "exit":
			return types.Event{}, io.EOF
		case "quiz", types.ActionCreateQuiz:
			return types.Event{Action: types.ActionCreateQuiz}, nil
		case "upload":
			path := strings.Trim(strings.TrimSpace(arg), `"'`)
			if path == "" {
				fmt.Fprintln(s.out, "usage: upload <file.pdf>")
				continue
			}
			data, err := utils.ReadFileLimited(path, s.maxSize)
			if err != nil {
				fmt.Fprintf(s.out, "cannot read %s: %v\n", path, err)
				continue
			}
			return types.Event{Upload: &types.Upload{Name: filepath.Base(path), Data: data}}, nil
		default:
			fmt.Fprintln(s.out, consoleHelp)
		}
	}
}

// ConsoleSink prints bot messages as plain text. Partial messages are
// printed inline as they arrive; the complete message that follows them only
// ends the line.
type ConsoleSink struct {
	mu        sync.Mutex
	out       io.Writer
	streaming string // kind of the partial message being printed
}

func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

func (s *ConsoleSink) Send(_ context.Context, msg types.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := "bot> "
	if msg.Kind == types.MessageKindError {
		prefix = "bot! "
	}

	if msg.Partial {
		if s.streaming == "" {
			if _, err := io.WriteString(s.out, prefix); err != nil {
				return err
			}
			s.streaming = msg.Kind
		}
		_, err := io.WriteString(s.out, msg.Content)
		return err
	}

	if s.streaming != "" {
		done := s.streaming == msg.Kind
		s.streaming = ""
		if _, err := io.WriteString(s.out, "\n"); err != nil {
			return err
		}
		if done {
			return s.printActions(msg.Actions)
		}
	}

	if _, err := fmt.Fprintf(s.out, "%s%s\n", prefix, msg.Content); err != nil {
		return err
	}
	if msg.Kind == types.MessageKindAsk {
		if _, err := fmt.Fprintf(s.out, "     (type: upload <file.pdf>, max %d MB)\n", msg.MaxSizeMB); err != nil {
			return err
		}
	}
	return s.printActions(msg.Actions)
}

func (s *ConsoleSink) printActions(actions []types.Action) error {
	for _, a := range actions {
		if _, err := fmt.Fprintf(s.out, "     [%s] %s (type: quiz)\n", a.Name, a.Label); err != nil {
			return err
		}
	}
	return nil
}
