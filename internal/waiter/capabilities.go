package waiter

import (
	"encoding/json"
	"strings"

	"github.com/darkden-lab/tableside/internal/cache"
	"github.com/darkden-lab/tableside/internal/floor"
	logx "github.com/darkden-lab/tableside/internal/log"
	"github.com/darkden-lab/tableside/internal/metrics"
	"github.com/darkden-lab/tableside/internal/ws"
)

// HandleRequest answers one client request on its own goroutine. Every
// request gets exactly one response event unless the session is closing.
func (s *Session) HandleRequest(f ws.Frame) {
	if !s.spawn(f.Event, func() { s.handleRequest(f) }) {
		s.logger.Debug().Str(logx.FieldRequest, f.Event).Msg("request after close ignored")
	}
}

func (s *Session) handleRequest(f ws.Frame) {
	switch f.Event {
	case RequestGetDiningTables:
		s.getDiningTables()
	case RequestGetDiningTableStatus:
		s.getDiningTableStatus(f.Args)
	case RequestGetOngoingOrdersCount:
		s.getOngoingOrdersCount(f.Args)
	default:
		metrics.IncCapabilityRequest("unknown", false)
		s.emit(EventError, errorArg("unknown request "+f.Event))
	}
}

func (s *Session) getDiningTables() {
	tables, err := floor.ResolveDiningTables(s.ctx, s.relay.floor, s.identity.ID, nil)
	metrics.IncCapabilityRequest(RequestGetDiningTables, err == nil)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Error().Err(err).Str(logx.FieldRequest, RequestGetDiningTables).Msg("request failed")
		}
		s.emit(EventDiningTablesError, errorArg("failed to load dining tables"))
		return
	}
	s.emit(EventDiningTables, tables)
}

func (s *Session) getDiningTableStatus(args []json.RawMessage) {
	tableID, ok := idArg(args, 0)
	if !ok {
		metrics.IncCapabilityRequest(RequestGetDiningTableStatus, false)
		s.emit(EventDiningTableStatusError, rawArg(args, 0), errorArg("tableId must be an integer"))
		return
	}

	session, err := cache.GetTableSession(s.ctx, s.relay.cache, tableID)
	metrics.IncCapabilityRequest(RequestGetDiningTableStatus, err == nil)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Error().Err(err).Int64(logx.FieldDiningTable, tableID).Msg("failed to read table session")
		}
		s.emit(EventDiningTableStatusError, tableID, errorArg("failed to read dining table status"))
		return
	}

	var status any
	if session != nil {
		status = session.Status
	}
	s.emit(EventDiningTableStatus, tableID, status)
}

func (s *Session) getOngoingOrdersCount(args []json.RawMessage) {
	waiterID, ok := idArg(args, 0)
	if !ok {
		metrics.IncCapabilityRequest(RequestGetOngoingOrdersCount, false)
		s.emit(EventOngoingOrdersCountError, errorArg("waiterId must be an integer"))
		return
	}

	count, err := s.relay.floor.CountWaiterAssignments(s.ctx, waiterID)
	metrics.IncCapabilityRequest(RequestGetOngoingOrdersCount, err == nil)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Error().Err(err).Int64(logx.FieldWaiterID, waiterID).Msg("failed to count assignments")
		}
		s.emit(EventOngoingOrdersCountError, errorArg("failed to count ongoing orders"))
		return
	}
	s.emit(EventOngoingOrdersCount, count)
}

// idArg decodes args[i] as an integer id.
func idArg(args []json.RawMessage, i int) (int64, bool) {
	if i >= len(args) {
		return 0, false
	}
	var id int64
	if err := json.Unmarshal(args[i], &id); err != nil || strings.TrimSpace(string(args[i])) == "null" {
		return 0, false
	}
	return id, true
}

// rawArg echoes args[i] back to the client, or null when absent.
func rawArg(args []json.RawMessage, i int) any {
	if i >= len(args) {
		return nil
	}
	return args[i]
}
