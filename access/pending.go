package access

import (
	"sort"
	"sync"
	"time"
)

// pendingDeletion is a deletion request waiting for in-flight access to finish
type pendingDeletion struct {
	key         string
	path        string
	requestedAt time.Time
}

// PendingDeletion is a diagnostic snapshot of one pending-deletion request
type PendingDeletion struct {
	Path        string    `json:"path" yaml:"path"`
	RequestedAt time.Time `json:"requested_at" yaml:"requested_at"`
}

// pendingQueue maps normalized paths to their first deletion request.
// A key is present only while the deletion was requested against a file that
// still had grants outstanding.
type pendingQueue struct {
	mu    sync.Mutex
	items map[string]pendingDeletion
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{items: make(map[string]pendingDeletion)}
}

// upsert inserts key or refreshes the path of an existing request. The
// original request time is kept so repeated requests cannot postpone expiry.
func (q *pendingQueue) upsert(key, path string, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if p, ok := q.items[key]; ok {
		p.path = path
		q.items[key] = p
		return
	}
	q.items[key] = pendingDeletion{key: key, path: path, requestedAt: at}
}

func (q *pendingQueue) remove(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.items[key]; !ok {
		return false
	}
	delete(q.items, key)
	return true
}

func (q *pendingQueue) get(key string) (pendingDeletion, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.items[key]
	return p, ok
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// list returns a copy of the queue ordered by request time
func (q *pendingQueue) list() []pendingDeletion {
	q.mu.Lock()
	out := make([]pendingDeletion, 0, len(q.items))
	for _, p := range q.items {
		out = append(out, p)
	}
	q.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].requestedAt.Equal(out[j].requestedAt) {
			return out[i].key < out[j].key
		}
		return out[i].requestedAt.Before(out[j].requestedAt)
	})
	return out
}
