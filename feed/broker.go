package feed

import "sync"

// Broker fans payloads out to subscribers grouped by project id. Subscriber
// channels are buffered by one; a slow client drops intermediate events rather
// than blocking the subscriber loop, which is fine because clients refetch on
// every event anyway.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan []byte]struct{})}
}

// Subscribe registers a listener for one project's events.
func (b *Broker) Subscribe(projectID string) chan []byte {
	ch := make(chan []byte, 1)
	b.mu.Lock()
	if b.subs[projectID] == nil {
		b.subs[projectID] = make(map[chan []byte]struct{})
	}
	b.subs[projectID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener registered with Subscribe.
func (b *Broker) Unsubscribe(projectID string, ch chan []byte) {
	b.mu.Lock()
	if set, ok := b.subs[projectID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(b.subs, projectID)
		}
	}
	b.mu.Unlock()
}

// Broadcast delivers data to every listener of the project.
func (b *Broker) Broadcast(projectID string, data []byte) {
	b.mu.Lock()
	for ch := range b.subs[projectID] {
		select {
		case ch <- data:
		default:
		}
	}
	b.mu.Unlock()
	eventsBroadcast.Inc()
}

// Listeners reports the number of active subscribers for a project.
func (b *Broker) Listeners(projectID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[projectID])
}
