// README: Chat relay bridging a websocket client to the streaming generative backend, one fragment per text frame.
package chat

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"navsmart/internal/ai"
	"navsmart/internal/observability"
)

const (
	bufferSize   = 1024
	inboundQueue = 16
	closeTimeout = time.Second
)

// Relay serves one websocket session per connection. Each inbound text message becomes one
// streaming backend request; responses are relayed in order, one message at a time.
type Relay struct {
	provider       ai.Provider
	upgrader       websocket.Upgrader
	allowedOrigins map[string]bool
	metrics        *observability.Metrics

	done      chan struct{}
	closeOnce sync.Once
}

// NewRelay creates a relay. An empty allowedOrigins list accepts every origin.
func NewRelay(provider ai.Provider, allowedOrigins []string, metrics *observability.Metrics) *Relay {
	r := &Relay{
		provider:       provider,
		allowedOrigins: make(map[string]bool, len(allowedOrigins)),
		metrics:        metrics,
		done:           make(chan struct{}),
	}
	for _, o := range allowedOrigins {
		r.allowedOrigins[strings.ToLower(o)] = true
	}
	r.upgrader = websocket.Upgrader{
		ReadBufferSize:  bufferSize,
		WriteBufferSize: bufferSize,
		CheckOrigin:     r.checkOrigin,
	}
	return r
}

func (r *Relay) checkOrigin(req *http.Request) bool {
	if len(r.allowedOrigins) == 0 {
		return true
	}
	origin := req.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return r.allowedOrigins[strings.ToLower(origin)]
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()
	log := slog.With("session_id", sessionID, "provider", r.provider.Name())
	r.metrics.ChatSessionOpened()
	defer r.metrics.ChatSessionClosed()
	log.Info("chat session started", "remote", req.RemoteAddr)
	defer log.Info("chat session ended")

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	go func() {
		select {
		case <-r.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	inbound := make(chan string, inboundQueue)
	go readLoop(ctx, cancel, conn, inbound, log)

	defer func() {
		if r.shuttingDown() {
			closeMsg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(closeTimeout))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			if strings.TrimSpace(msg) == "" {
				continue
			}
			if !r.relay(ctx, conn, msg, log) {
				return
			}
		}
	}
}

// Close ends every open session. Hijacked websocket connections are not tracked by
// http.Server.Shutdown, so the server calls this on shutdown.
func (r *Relay) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Relay) shuttingDown() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// relay streams one reply. It reports whether the session should continue.
func (r *Relay) relay(ctx context.Context, conn *websocket.Conn, msg string, log *slog.Logger) bool {
	err := r.provider.Stream(ctx, msg, func(fragment string) error {
		return conn.WriteMessage(websocket.TextMessage, []byte(fragment))
	})
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		log.Debug("stream cancelled", "error", err)
		return false
	}

	log.Warn("chat stream failed", "error", err)
	closeMsg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "backend unavailable")
	_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(closeTimeout))
	return false
}

// readLoop forwards inbound frames until the client goes away, then cancels the session.
func readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, inbound chan<- string, log *slog.Logger) {
	defer cancel()
	defer close(inbound)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket closed unexpectedly", "error", err)
			}
			return
		}
		select {
		case inbound <- string(data):
		case <-ctx.Done():
			return
		}
	}
}
