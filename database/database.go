package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/tieubaoca/pdf-quizbot/config"
)

// Keys stored per conversation.
const (
	KeyPDFText = "pdf_text"
	KeyPDFName = "pdf_name"
)

var ErrSessionStoreClosed = errors.New("session store closed")

// SessionStore associates values with a conversation for the lifetime of
// that conversation.
type SessionStore interface {
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// NewSessionStore opens the store selected by cfg.Driver.
func NewSessionStore(cfg config.SessionStoreConfig) (SessionStore, error) {
	switch cfg.Driver {
	case config.SessionDriverMemory, "":
		return NewMemoryStore(), nil
	case config.SessionDriverBolt:
		return NewBoltStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown session store driver %q", cfg.Driver)
	}
}
