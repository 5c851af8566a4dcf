// Package realtime subscribes to the store's change feed over a Phoenix-
// channel websocket and republishes fragment inserts on a Go channel.
// Delivery is at-least-once: reconnects may replay events, and ordering
// relative to concurrent inserts from other clients is not guaranteed.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"conexiones-backend/domain/story"
	appErrors "conexiones-backend/pkg/errors"
)

const (
	heartbeatInterval = 30 * time.Second
	reconnectDelay    = 5 * time.Second
	writeWait         = 10 * time.Second
	eventBuffer       = 16
)

// Subscriber maintains a websocket subscription to a table's insert events.
type Subscriber struct {
	endpoint string
	topic    string
	dialer   *websocket.Dialer
	logger   *zap.Logger
}

// NewSubscriber derives the realtime endpoint from the store URL and key.
func NewSubscriber(storeURL, apiKey, table string, logger *zap.Logger) *Subscriber {
	endpoint := strings.TrimSuffix(storeURL, "/")
	endpoint = strings.Replace(endpoint, "https://", "wss://", 1)
	endpoint = strings.Replace(endpoint, "http://", "ws://", 1)
	endpoint = fmt.Sprintf("%s/realtime/v1/websocket?apikey=%s&vsn=1.0.0", endpoint, apiKey)

	return &Subscriber{
		endpoint: endpoint,
		topic:    "realtime:public:" + table,
		dialer:   websocket.DefaultDialer,
		logger:   logger.With(zap.String("topic", "realtime:public:"+table)),
	}
}

// phoenixMessage is a Phoenix channel frame.
type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// insertPayload is the body of an INSERT event.
type insertPayload struct {
	Type   string         `json:"type"`
	Record story.Fragment `json:"record"`
}

// SubscribeInserts opens the subscription. The returned channel delivers
// one Fragment per insert event and is closed when the subscription ends;
// the cancel function tears the connection down.
func (s *Subscriber) SubscribeInserts(ctx context.Context) (<-chan story.Fragment, func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	conn, err := s.connect(subCtx)
	if err != nil {
		cancel()
		return nil, nil, appErrors.NewStoreUnavailable("failed to open realtime subscription", err)
	}

	events := make(chan story.Fragment, eventBuffer)
	go s.run(subCtx, conn, events)

	return events, cancel, nil
}

// run pumps events from the connection, reconnecting until ctx is
// cancelled. Close failures during teardown are logged and ignored.
func (s *Subscriber) run(ctx context.Context, conn *websocket.Conn, events chan<- story.Fragment) {
	defer close(events)

	for {
		s.pump(ctx, conn, events)

		if ctx.Err() != nil {
			return
		}

		s.logger.Warn("realtime connection lost, reconnecting",
			zap.Duration("delay", reconnectDelay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}

		next, err := s.connect(ctx)
		if err != nil {
			s.logger.Error("realtime reconnect failed", zap.Error(err))
			continue
		}
		conn = next
	}
}

// connect dials the endpoint and joins the table topic.
func (s *Subscriber) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, err
	}

	join := phoenixMessage{
		Topic:   s.topic,
		Event:   "phx_join",
		Payload: json.RawMessage(`{}`),
		Ref:     "1",
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		return nil, err
	}

	s.logger.Info("realtime subscription joined")
	return conn, nil
}

// pump reads frames until the connection drops or ctx is cancelled.
func (s *Subscriber) pump(ctx context.Context, conn *websocket.Conn, events chan<- story.Fragment) {
	var writeMu sync.Mutex

	stopHeartbeat := make(chan struct{})
	defer close(stopHeartbeat)

	// One writer at a time: heartbeats race with nothing else after the
	// join, but the mutex keeps that invariant explicit.
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		ref := 2
		for {
			select {
			case <-stopHeartbeat:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				err := conn.WriteJSON(phoenixMessage{
					Topic:   "phoenix",
					Event:   "heartbeat",
					Payload: json.RawMessage(`{}`),
					Ref:     fmt.Sprintf("%d", ref),
				})
				writeMu.Unlock()
				if err != nil {
					s.logger.Warn("realtime heartbeat failed", zap.Error(err))
					conn.Close()
					return
				}
				ref++
			}
		}
	}()

	for {
		var msg phoenixMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("realtime read failed", zap.Error(err))
			}
			if closeErr := conn.Close(); closeErr != nil {
				s.logger.Debug("realtime close failed", zap.Error(closeErr))
			}
			return
		}

		if msg.Topic != s.topic || msg.Event != "INSERT" {
			continue
		}

		var payload insertPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			s.logger.Warn("realtime payload decode failed", zap.Error(err))
			continue
		}
		if payload.Record.ID == "" {
			continue
		}

		select {
		case events <- payload.Record:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}
