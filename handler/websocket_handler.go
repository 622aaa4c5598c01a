package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tieubaoca/pdf-quizbot/database"
	"github.com/tieubaoca/pdf-quizbot/service"
	"github.com/tieubaoca/pdf-quizbot/types"
)

const (
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
	writeWait     = 10 * time.Second
	frameOverhead = 64 << 10
)

// ConversationFactory builds the conversation for one connection.
type ConversationFactory func(sessionID string, sink service.MessageSink) *service.Conversation

type WebSocketHandler struct {
	newConversation ConversationFactory
	store           database.SessionStore
	keepSessions    bool
	readLimit       int64
	upgrader        websocket.Upgrader
	log             *zap.Logger
}

// NewWebSocketHandler serves one conversation per connection. When
// keepSessions is false the session is dropped from the store on disconnect;
// otherwise clients may reconnect with ?session=<id> to resume.
func NewWebSocketHandler(
	newConversation ConversationFactory,
	store database.SessionStore,
	keepSessions bool,
	maxUploadSize int64,
	log *zap.Logger,
) *WebSocketHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocketHandler{
		newConversation: newConversation,
		store:           store,
		keepSessions:    keepSessions,
		// uploads arrive base64 encoded inside a JSON frame
		readLimit: maxUploadSize/3*4 + frameOverhead,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
		log: log,
	}
}

func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	sessionID := uuid.NewString()
	if h.keepSessions {
		if id, err := uuid.Parse(c.Query("session")); err == nil {
			sessionID = id.String()
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	log := h.log.With(zap.String("session", sessionID))
	ws := newWSConn(conn, sessionID, h.readLimit, log)
	defer ws.Close()

	go ws.readLoop()
	go ws.pingLoop()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log.Info("conversation started")
	conv := h.newConversation(sessionID, ws)
	if err := conv.Run(ctx, ws); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("conversation ended with error", zap.Error(err))
	} else {
		log.Info("conversation ended")
	}

	if !h.keepSessions {
		if err := h.store.Delete(context.Background(), sessionID); err != nil {
			log.Warn("failed to drop session", zap.Error(err))
		}
	}
}

// wsConn adapts a websocket connection to service.EventSource and
// service.MessageSink.
type wsConn struct {
	conn    *websocket.Conn
	session string
	log     *zap.Logger

	events    chan types.Event
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

func newWSConn(conn *websocket.Conn, session string, readLimit int64, log *zap.Logger) *wsConn {
	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &wsConn{
		conn:    conn,
		session: session,
		log:     log,
		events:  make(chan types.Event),
		done:    make(chan struct{}),
	}
}

func (w *wsConn) Next(ctx context.Context) (types.Event, error) {
	select {
	case ev, ok := <-w.events:
		if !ok {
			return types.Event{}, io.EOF
		}
		return ev, nil
	case <-ctx.Done():
		return types.Event{}, ctx.Err()
	}
}

func (w *wsConn) Send(_ context.Context, msg types.ChatMessage) error {
	kind := types.TypeWebsocketMessage
	if msg.Kind == types.MessageKindError {
		kind = types.TypeWebsocketError
	}
	return w.writeJSON(types.WebSocketResponse{Type: kind, Session: w.session, Payload: msg})
}

func (w *wsConn) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		w.conn.Close()
	})
}

func (w *wsConn) writeJSON(v interface{}) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(v)
}

func (w *wsConn) writeError(message string) {
	err := w.writeJSON(types.WebSocketResponse{
		Type:    types.TypeWebsocketError,
		Session: w.session,
		Payload: types.ChatMessage{Kind: types.MessageKindError, Content: message},
	})
	if err != nil {
		w.log.Debug("write error", zap.Error(err))
	}
}

func (w *wsConn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.writeMu.Lock()
			err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			w.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (w *wsConn) readLoop() {
	defer close(w.events)
	for {
		_, p, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				w.log.Info("websocket read error", zap.Error(err))
			}
			return
		}

		ev, ok := w.decode(p)
		if !ok {
			continue
		}
		select {
		case w.events <- ev:
		case <-w.done:
			return
		}
	}
}

// decode turns a frame into an event. Pings are answered here and bad frames
// are reported to the client; both return ok=false.
func (w *wsConn) decode(p []byte) (types.Event, bool) {
	var req types.WebsocketRequest
	if err := json.Unmarshal(p, &req); err != nil {
		w.log.Debug("unmarshal error", zap.Error(err))
		w.writeError("Error processing message")
		return types.Event{}, false
	}

	switch req.Type {
	case types.TypeWebsocketPing:
		if err := w.writeJSON(types.WebSocketResponse{Type: types.TypeWebsocketPong, Session: w.session}); err != nil {
			w.log.Debug("write error", zap.Error(err))
		}
		return types.Event{}, false
	case types.TypeWebsocketUpload:
		var up types.Upload
		if err := json.Unmarshal(req.Payload, &up); err != nil || len(up.Data) == 0 {
			w.writeError("Invalid upload")
			return types.Event{}, false
		}
		return types.Event{Upload: &up}, true
	case types.TypeWebsocketAction:
		var action types.WebSocketActionPayload
		if err := json.Unmarshal(req.Payload, &action); err != nil || action.Name == "" {
			w.writeError("Invalid action")
			return types.Event{}, false
		}
		return types.Event{Action: action.Name}, true
	default:
		w.writeError("Invalid message type")
		return types.Event{}, false
	}
}
