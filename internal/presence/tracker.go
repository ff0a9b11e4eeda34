package presence

import (
	"context"
	"log"
	"sync"
	"time"

	"dm-service/internal/observability"
)

// Store is the durable side of presence. It is an eventually
// consistent cache of the in-memory table; writes are best-effort.
type Store interface {
	UpdatePresence(ctx context.Context, userID int, online bool, lastSeen time.Time) error
}

type entry struct {
	conns    int
	online   bool
	lastSeen time.Time
	dirty    bool
}

// Tracker is the authoritative process-wide presence table. A user is
// online while at least one of their connections is open; only an
// intentional disconnect of the last connection transitions them
// offline — transient drops preserve presence.
type Tracker struct {
	mu      sync.Mutex
	entries map[int]*entry
	store   Store
}

// NewTracker builds a tracker flushing to the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{entries: make(map[int]*entry), store: store}
}

// Connected registers a connection for the user and reports whether
// the user transitioned to online.
func (t *Tracker) Connected(userID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[userID]
	if e == nil {
		e = &entry{}
		t.entries[userID] = e
	}
	e.conns++
	e.lastSeen = time.Now()
	e.dirty = true
	if !e.online {
		e.online = true
		return true
	}
	return false
}

// Disconnected unregisters a connection. The offline transition is
// applied only when the close was intentional and no other connection
// of the user remains; it reports whether the user went offline.
func (t *Tracker) Disconnected(userID int, intentional bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.entries[userID]
	if e == nil {
		return false
	}
	if e.conns > 0 {
		e.conns--
	}
	e.lastSeen = time.Now()
	e.dirty = true
	if intentional && e.conns == 0 && e.online {
		e.online = false
		return true
	}
	return false
}

// IsOnline reads the authoritative in-memory state.
func (t *Tracker) IsOnline(userID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[userID]
	return e != nil && e.online
}

// LastSeen returns the last activity timestamp for the user, or zero
// when the tracker has never seen them.
func (t *Tracker) LastSeen(userID int) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.entries[userID]; e != nil {
		return e.lastSeen
	}
	return time.Time{}
}

// Flush writes every dirty entry to the durable store. Failures are
// logged and counted, never propagated; failed entries stay dirty and
// are retried on the next tick.
func (t *Tracker) Flush(ctx context.Context) {
	type snapshot struct {
		userID   int
		online   bool
		lastSeen time.Time
	}

	t.mu.Lock()
	pending := make([]snapshot, 0, len(t.entries))
	for userID, e := range t.entries {
		if e.dirty {
			pending = append(pending, snapshot{userID: userID, online: e.online, lastSeen: e.lastSeen})
			e.dirty = false
		}
	}
	t.mu.Unlock()

	for _, s := range pending {
		if err := t.store.UpdatePresence(ctx, s.userID, s.online, s.lastSeen); err != nil {
			log.Printf("presence flush failed for user %d: %v", s.userID, err)
			observability.IncPresenceFlushError()
			t.mu.Lock()
			if e := t.entries[s.userID]; e != nil {
				e.dirty = true
			}
			t.mu.Unlock()
		}
	}
}

// Run flushes periodically until the context is canceled, then makes a
// final pass so offline states reach the store on shutdown.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.Flush(ctx)
		case <-ctx.Done():
			t.Flush(context.Background())
			return
		}
	}
}
