// Package events bridges store insert notifications into the composer
// session, so the story re-derives incrementally instead of waiting for a
// manual reload.
package events

import (
	"context"

	"go.uber.org/zap"

	"conexiones-backend/application/ports"
	"conexiones-backend/application/services/composer"
	"conexiones-backend/domain/story"
)

// Broadcaster pushes an event to connected web clients. The websocket hub
// implements it.
type Broadcaster interface {
	Broadcast(messageType string, data interface{}) error
}

// EventFragmentCreated mirrors the hub's event type without importing it.
const EventFragmentCreated = "FRAGMENT_CREATED"

// Bridge consumes insert events and feeds them into the session's
// incremental update rule. Duplicate delivery of a fragment id is absorbed
// by the session's window dedup, so the bridge is safe under at-least-once
// delivery.
type Bridge struct {
	subscriber  ports.InsertSubscriber
	session     *composer.Session
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewBridge wires a subscriber to a session. broadcaster may be nil.
func NewBridge(subscriber ports.InsertSubscriber, session *composer.Session, broadcaster Broadcaster, logger *zap.Logger) *Bridge {
	return &Bridge{
		subscriber:  subscriber,
		session:     session,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Run consumes events until ctx is cancelled or the subscription ends. The
// subscription is always torn down on return.
func (b *Bridge) Run(ctx context.Context) error {
	events, cancel, err := b.subscriber.SubscribeInserts(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	b.logger.Info("live-update bridge started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("live-update bridge stopped")
			return nil

		case fragment, ok := <-events:
			if !ok {
				b.logger.Warn("insert subscription closed")
				return nil
			}
			b.handle(fragment)
		}
	}
}

func (b *Bridge) handle(fragment story.Fragment) {
	b.logger.Debug("insert event received",
		zap.String("fragmentID", fragment.ID),
		zap.String("keyword", fragment.Keyword),
	)

	b.session.ApplyInsert(fragment)

	if b.broadcaster != nil {
		if err := b.broadcaster.Broadcast(EventFragmentCreated, fragment); err != nil {
			b.logger.Warn("failed to broadcast fragment event", zap.Error(err))
		}
	}
}
