package waiter

import (
	"errors"

	"github.com/darkden-lab/tableside/internal/eventbus"
	"github.com/darkden-lab/tableside/internal/floor"
	logx "github.com/darkden-lab/tableside/internal/log"
	"github.com/darkden-lab/tableside/internal/metrics"
)

func (s *Session) dispatch(topic floor.Topic, e eventbus.Event) {
	payload, err := floor.DecodePayload(topic, e.Payload)
	if err != nil {
		metrics.IncEventDropped(string(topic), "malformed")
		s.logger.Warn().Err(err).Str(logx.FieldTopic, string(topic)).Str("event_id", e.ID).Msg("dropping malformed event")
		return
	}

	switch p := payload.(type) {
	case floor.AssignmentChanged:
		s.onAssignmentChanged(topic, p)
	case floor.DiningAreaChanged:
		s.onDiningAreaChanged(topic, p)
	case floor.OrderLifecycle:
		s.onOrderLifecycle(topic, p)
	case floor.WaiterAcceptedTable:
		s.onWaiterAcceptedTable(p)
	default:
		metrics.IncEventDropped(string(topic), "unhandled")
		s.logger.Error().Str(logx.FieldTopic, string(topic)).Msgf("no handler for payload %T", payload)
	}
}

// onAssignmentChanged refreshes the waiter's tables when their own
// assignments changed.
func (s *Session) onAssignmentChanged(topic floor.Topic, p floor.AssignmentChanged) {
	if p.WaiterID != s.identity.ID {
		metrics.IncEventDropped(string(topic), "other_waiter")
		return
	}

	tables, err := floor.ResolveDiningTables(s.ctx, s.relay.floor, s.identity.ID, nil)
	if err != nil {
		s.diningTablesFault(topic, err)
		return
	}
	s.emit(EventDiningTables, tables)
}

// onDiningAreaChanged refreshes the waiter's tables when a dining area they
// are assigned to changed.
func (s *Session) onDiningAreaChanged(topic floor.Topic, p floor.DiningAreaChanged) {
	assignments, err := s.relay.floor.ListWaiterAssignments(s.ctx, s.identity.ID)
	if err != nil {
		s.diningTablesFault(topic, err)
		return
	}
	if !floor.CoversArea(assignments, p.DiningAreaID) {
		metrics.IncEventDropped(string(topic), "other_area")
		return
	}

	tables, err := floor.ResolveDiningTables(s.ctx, s.relay.floor, s.identity.ID, assignments)
	if err != nil {
		s.diningTablesFault(topic, err)
		return
	}
	s.emit(EventDiningTables, tables)
}

func (s *Session) diningTablesFault(topic floor.Topic, err error) {
	if s.ctx.Err() != nil {
		return
	}
	s.logger.Error().Err(err).Str(logx.FieldTopic, string(topic)).Msg("failed to resolve dining tables")
	s.emit(EventDiningTablesError, errorArg("failed to load dining tables"))
}

// onOrderLifecycle pushes the status of a table whose order started or
// ended. Faults are logged only; the client is not told.
func (s *Session) onOrderLifecycle(topic floor.Topic, p floor.OrderLifecycle) {
	logger := s.logger.With().Str(logx.FieldTopic, string(topic)).Int64(logx.FieldDiningTable, p.DiningTableID).Logger()

	if _, err := s.relay.floor.GetDiningTable(s.ctx, p.DiningTableID); err != nil {
		if errors.Is(err, floor.ErrDiningTableNotFound) {
			metrics.IncEventDropped(string(topic), "table_not_found")
			logger.Warn().Msg("dining table not found")
			return
		}
		if s.ctx.Err() == nil {
			metrics.IncEventDropped(string(topic), "store_error")
			logger.Error().Err(err).Msg("failed to load dining table")
		}
		return
	}

	var status any
	if topic == floor.TopicOrderStarted {
		status = StatusWaitingForWaiter
	}
	logger.Debug().Interface("status", status).Msg("dining table status changed")
	s.emit(EventDiningTableStatus, p.DiningTableID, status)
}

// onWaiterAcceptedTable is forwarded to every waiter regardless of who
// accepted the table.
func (s *Session) onWaiterAcceptedTable(p floor.WaiterAcceptedTable) {
	s.logger.Debug().Int64(logx.FieldWaiterID, p.WaiterID).Int64(logx.FieldDiningTable, p.TableID).Msg("waiter accepted table")
	s.emit(EventDiningTableStatus, p.TableID, StatusOrderOngoing)
}
