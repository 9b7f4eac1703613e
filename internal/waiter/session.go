package waiter

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"

	"github.com/darkden-lab/tableside/internal/auth"
	"github.com/darkden-lab/tableside/internal/eventbus"
	"github.com/darkden-lab/tableside/internal/floor"
	logx "github.com/darkden-lab/tableside/internal/log"
	"github.com/darkden-lab/tableside/internal/metrics"
)

type state int

const (
	stateOpening state = iota
	stateSubscribed
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateOpening:
		return "opening"
	case stateSubscribed:
		return "subscribed"
	case stateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session is the relay state of one waiter connection. Bus events and
// client requests are each handled on their own goroutine; nothing is
// emitted once Close has started.
type Session struct {
	ID       string
	identity auth.Identity
	relay    *Relay
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   state
	emitter Emitter
	subs    map[floor.Topic]string
	wg      sync.WaitGroup
}

// Identity returns the staff identity the session was opened for.
func (s *Session) Identity() auth.Identity {
	return s.identity
}

// Subscribed reports whether the session is live.
func (s *Session) Subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateSubscribed
}

// Handles returns a copy of the topic to bus handle mapping.
func (s *Session) Handles() map[floor.Topic]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[floor.Topic]string, len(s.subs))
	for t, h := range s.subs {
		out[t] = h
	}
	return out
}

// Close moves the session to Closed, releases every bus subscription and
// waits for in-flight work. Release failures are logged and do not stop the
// remaining releases. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return
	}
	wasSubscribed := s.state == stateSubscribed
	s.state = stateClosed
	subs := s.subs
	s.subs = map[floor.Topic]string{}
	s.mu.Unlock()

	s.cancel()

	released := 0
	for _, topic := range floor.AllTopics {
		handle, ok := subs[topic]
		if !ok {
			continue
		}
		metrics.ActiveSubscriptions.Dec()
		if err := s.relay.bus.Unsubscribe(handle); err != nil {
			metrics.ReleaseFailuresTotal.Inc()
			s.logger.Warn().Err(err).
				Str(logx.FieldTopic, string(topic)).
				Str(logx.FieldHandle, handle).
				Msg("failed to release subscription")
			continue
		}
		released++
	}

	s.wg.Wait()

	s.mu.Lock()
	s.emitter = nil
	s.mu.Unlock()

	if wasSubscribed {
		metrics.ActiveSessions.Dec()
	}
	s.logger.Info().Int("released", released).Int(logx.FieldSubscription, len(subs)).Msg("waiter session closed")
}

// begin registers a unit of work. It returns false once the session is not
// subscribed.
func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateSubscribed {
		return false
	}
	s.wg.Add(1)
	return true
}

// spawn runs fn on its own goroutine as tracked work. A panic in fn is
// logged and contained.
func (s *Session) spawn(what string, fn func()) bool {
	if !s.begin() {
		return false
	}
	go func() {
		defer s.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().
					Str("work", what).
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("recovered from panic")
			}
		}()
		fn()
	}()
	return true
}

// emit sends an event to the peer while the session is subscribed.
func (s *Session) emit(event string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateSubscribed || s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(event, args...); err != nil {
		s.logger.Warn().Err(err).Str(logx.FieldEvent, event).Msg("emit failed")
		return
	}
	metrics.EmissionsTotal.WithLabelValues(event).Inc()
}

func (s *Session) handlerFor(topic floor.Topic) eventbus.Handler {
	return func(e eventbus.Event) {
		metrics.EventsReceivedTotal.WithLabelValues(string(topic)).Inc()
		if !s.spawn(string(topic), func() { s.dispatch(topic, e) }) {
			metrics.IncEventDropped(string(topic), "not_subscribed")
		}
	}
}
