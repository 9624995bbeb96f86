package realtime

import (
	"sync"
)

// topicEntry owns the membership set for one topic. Each entry carries its
// own lock so joins on unrelated packages never contend.
type topicEntry struct {
	mu      sync.Mutex
	members map[*Client]struct{}
}

// Registry maps topics to their live subscriber connections. It is mutated
// concurrently by every connection lifecycle; the outer lock only guards the
// topic map itself, membership changes take the per-topic lock.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]*topicEntry

	// reverse index for disconnect cleanup
	joinedMu sync.Mutex
	joined   map[*Client]map[string]Topic
}

func NewRegistry() *Registry {
	return &Registry{
		topics: make(map[string]*topicEntry),
		joined: make(map[*Client]map[string]Topic),
	}
}

func (r *Registry) entry(key string, create bool) *topicEntry {
	r.mu.RLock()
	e := r.topics[key]
	r.mu.RUnlock()
	if e != nil || !create {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e = r.topics[key]; e == nil {
		e = &topicEntry{members: make(map[*Client]struct{})}
		r.topics[key] = e
	}
	return e
}

// Join adds the client to the topic. Joining a topic twice is a no-op.
func (r *Registry) Join(t Topic, c *Client) {
	key := t.String()
	for {
		e := r.entry(key, true)
		e.mu.Lock()
		e.members[c] = struct{}{}
		e.mu.Unlock()

		// GC in leaveKey may have dropped the entry from the map before our
		// insert landed; membership in an orphaned entry is invisible to
		// MembersOf, so verify and retry on a fresh one. Once the map still
		// holds e after the insert, the GC recheck can no longer empty it.
		r.mu.RLock()
		current := r.topics[key] == e
		r.mu.RUnlock()
		if current {
			break
		}
	}

	r.joinedMu.Lock()
	set := r.joined[c]
	if set == nil {
		set = make(map[string]Topic, 2)
		r.joined[c] = set
	}
	set[key] = t
	r.joinedMu.Unlock()
}

// Leave removes the client from the topic. Idempotent: leaving twice, or a
// topic never joined, does nothing. Empty topics are garbage-collected.
func (r *Registry) Leave(t Topic, c *Client) {
	r.leaveKey(t.String(), c)

	r.joinedMu.Lock()
	if set := r.joined[c]; set != nil {
		delete(set, t.String())
		if len(set) == 0 {
			delete(r.joined, c)
		}
	}
	r.joinedMu.Unlock()
}

func (r *Registry) leaveKey(key string, c *Client) {
	e := r.entry(key, false)
	if e == nil {
		return
	}
	e.mu.Lock()
	delete(e.members, c)
	empty := len(e.members) == 0
	e.mu.Unlock()

	if empty {
		r.mu.Lock()
		// recheck under the write lock: someone may have joined in between
		if e2 := r.topics[key]; e2 == e {
			e.mu.Lock()
			if len(e.members) == 0 {
				delete(r.topics, key)
			}
			e.mu.Unlock()
		}
		r.mu.Unlock()
	}
}

// Drop removes the client from every topic it had joined. Called on
// disconnect; leaves no membership behind.
func (r *Registry) Drop(c *Client) {
	r.joinedMu.Lock()
	set := r.joined[c]
	delete(r.joined, c)
	r.joinedMu.Unlock()

	for key := range set {
		r.leaveKey(key, c)
	}
}

// MembersOf returns a snapshot of the topic's current members.
func (r *Registry) MembersOf(t Topic) []*Client {
	e := r.entry(t.String(), false)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	out := make([]*Client, 0, len(e.members))
	for c := range e.members {
		out = append(out, c)
	}
	e.mu.Unlock()
	return out
}

// TopicCount reports how many topics currently have at least one member.
func (r *Registry) TopicCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}
