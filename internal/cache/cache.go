// Package cache is the key/value store holding live table sessions.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Store is a byte-oriented key/value cache. Get reports absence with
// ok == false and a nil error; a non-nil error is a fault.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Table session statuses written by the ordering service.
const (
	StatusWaitingForWaiter = "waiting-for-waiter"
	StatusOrderOngoing     = "order-ongoing"
)

// TableSession is the cached record of an open dining table session.
type TableSession struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// TableSessionKey returns the cache key of a dining table's session.
func TableSessionKey(diningTableID int64) string {
	return "table-session:" + strconv.FormatInt(diningTableID, 10)
}

// GetTableSession reads the session of a dining table. A missing session is
// returned as nil with a nil error.
func GetTableSession(ctx context.Context, store Store, diningTableID int64) (*TableSession, error) {
	raw, ok, err := store.Get(ctx, TableSessionKey(diningTableID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var session TableSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode table session %d: %w", diningTableID, err)
	}
	return &session, nil
}

// PutTableSession writes the session of a dining table in the shape the
// ordering service uses. The service itself only reads sessions; this seeds
// the cache in development and tests.
func PutTableSession(ctx context.Context, store Store, diningTableID int64, session TableSession, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode table session %d: %w", diningTableID, err)
	}
	return store.Set(ctx, TableSessionKey(diningTableID), raw, ttl)
}
