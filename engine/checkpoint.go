package engine

import (
	"container/list"
	"sync"

	"github.com/avilaj/rassist/core"
)

type checkpointKey struct {
	sessionID string
	requestID string
}

// CheckpointStore keeps per-request record snapshots keyed by
// (session_id, request_id). Writes are serialized under one lock, which the
// engine only takes between stages, never while suspended on provider I/O.
// Sessions are evicted least-recently-used once the session cap is reached;
// resume is read-from-last-checkpoint only, partially executed stages are
// never replayed.
type CheckpointStore struct {
	mu          sync.Mutex
	snapshots   map[checkpointKey]*core.Record
	lru         *list.List // front = most recent session
	sessions    map[string]*list.Element
	maxSessions int
}

// NewCheckpointStore constructs a store retaining at most maxSessions
// sessions (0 means unbounded).
func NewCheckpointStore(maxSessions int) *CheckpointStore {
	return &CheckpointStore{
		snapshots:   make(map[checkpointKey]*core.Record),
		lru:         list.New(),
		sessions:    make(map[string]*list.Element),
		maxSessions: maxSessions,
	}
}

// Save stores a deep-copied snapshot of the record and marks its session as
// most recently used.
func (c *CheckpointStore) Save(rec *core.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshots[checkpointKey{rec.SessionID, rec.RequestID}] = rec.Clone()
	c.touchLocked(rec.SessionID)

	for c.maxSessions > 0 && c.lru.Len() > c.maxSessions {
		oldest := c.lru.Back()
		c.evictLocked(oldest.Value.(string))
	}
}

// Latest returns the newest snapshot for the given keys.
func (c *CheckpointStore) Latest(sessionID, requestID string) (*core.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.snapshots[checkpointKey{sessionID, requestID}]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// EvictSession drops every snapshot of a session.
func (c *CheckpointStore) EvictSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictLocked(sessionID)
}

// Len reports how many sessions currently hold checkpoints.
func (c *CheckpointStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *CheckpointStore) touchLocked(sessionID string) {
	if el, ok := c.sessions[sessionID]; ok {
		c.lru.MoveToFront(el)
		return
	}
	c.sessions[sessionID] = c.lru.PushFront(sessionID)
}

func (c *CheckpointStore) evictLocked(sessionID string) {
	el, ok := c.sessions[sessionID]
	if !ok {
		return
	}
	c.lru.Remove(el)
	delete(c.sessions, sessionID)
	for key := range c.snapshots {
		if key.sessionID == sessionID {
			delete(c.snapshots, key)
		}
	}
}
