// Package waiter implements the waiter namespace: a per-connection relay that
// turns floor events on the bus into notifications for one waiter, and the
// pull requests a waiter client can make over the same connection.
package waiter

import (
	"github.com/darkden-lab/tableside/internal/cache"
	"github.com/darkden-lab/tableside/internal/ws"
)

// Inbound requests.
const (
	RequestGetDiningTables       = "getDiningTables"
	RequestGetDiningTableStatus  = "getDiningTableStatus"
	RequestGetOngoingOrdersCount = "getOngoingOrdersCount"
)

// Outbound events.
const (
	EventDiningTables            = "diningTables"
	EventDiningTablesError       = "diningTablesError"
	EventDiningTableStatus       = "diningTableStatus"
	EventDiningTableStatusError  = "diningTableStatusError"
	EventOngoingOrdersCount      = "ongoingOrdersCount"
	EventOngoingOrdersCountError = "ongoingOrdersCountError"
	EventError                   = ws.EventError
)

// Dining table statuses pushed to waiters. They are the table session
// statuses of the cache; a nil status means the table has no open session.
const (
	StatusWaitingForWaiter = cache.StatusWaitingForWaiter
	StatusOrderOngoing     = cache.StatusOrderOngoing
)

// Emitter delivers an event with positional arguments to the peer of one
// connection. It must not block.
type Emitter interface {
	Emit(event string, args ...any) error
}

func errorArg(msg string) ws.ErrorArg {
	return ws.ErrorArg{Message: msg}
}
