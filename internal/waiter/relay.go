package waiter

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/darkden-lab/tableside/internal/auth"
	"github.com/darkden-lab/tableside/internal/cache"
	"github.com/darkden-lab/tableside/internal/eventbus"
	"github.com/darkden-lab/tableside/internal/floor"
	logx "github.com/darkden-lab/tableside/internal/log"
	"github.com/darkden-lab/tableside/internal/metrics"
)

// FloorReader is the read-only view of the floor store used by sessions.
type FloorReader interface {
	floor.TableLister
	GetDiningTable(ctx context.Context, id int64) (*floor.DiningTable, error)
	CountWaiterAssignments(ctx context.Context, waiterID int64) (int, error)
}

// Relay opens sessions for waiter connections. The bus, store and cache are
// shared by every session.
type Relay struct {
	bus    eventbus.Bus
	floor  FloorReader
	cache  cache.Store
	logger zerolog.Logger
}

func NewRelay(bus eventbus.Bus, floorReader FloorReader, store cache.Store) *Relay {
	return &Relay{
		bus:    bus,
		floor:  floorReader,
		cache:  store,
		logger: logx.WithComponent("waiter"),
	}
}

// Open subscribes a new session to every floor topic and returns it in the
// Subscribed state. If any subscription fails, the ones already taken are
// released and an error is returned; the caller should drop the connection.
//
// ctx bounds the life of the session's lookups; it must outlive the request
// that opened the connection.
func (r *Relay) Open(ctx context.Context, connID string, identity auth.Identity, emitter Emitter) (*Session, error) {
	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:       connID,
		identity: identity,
		relay:    r,
		logger: r.logger.With().
			Str(logx.FieldSessionID, connID).
			Int64(logx.FieldStaffID, identity.ID).
			Str(logx.FieldRole, string(identity.Role)).
			Logger(),
		ctx:     sctx,
		cancel:  cancel,
		state:   stateOpening,
		emitter: emitter,
		subs:    make(map[floor.Topic]string, len(floor.AllTopics)),
	}

	for _, topic := range floor.AllTopics {
		handle, err := r.bus.Subscribe(string(topic), s.handlerFor(topic))
		if err != nil {
			s.logger.Error().Err(err).Str(logx.FieldTopic, string(topic)).Msg("subscription setup failed")
			s.Close()
			return nil, fmt.Errorf("subscribe %s: %w", topic, err)
		}
		s.subs[topic] = handle
		metrics.ActiveSubscriptions.Inc()
	}

	s.mu.Lock()
	s.state = stateSubscribed
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()

	s.logger.Info().Int(logx.FieldSubscription, len(s.subs)).Msg("waiter session subscribed")
	return s, nil
}
