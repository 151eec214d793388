// Package notifier broadcasts catalog reloads to open dashboard streams.
package notifier

import "sync"

// Event announces a new catalog generation.
type Event struct {
	Generation uint64
	Source     string
}

// Notifier fans out events to subscribers. Each subscriber holds at most one
// pending event; a newer event replaces an unread one, so slow streams only
// ever see the latest generation.
type Notifier struct {
	mu        sync.Mutex
	listeners map[chan Event]struct{}
	last      Event
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{listeners: make(map[chan Event]struct{})}
}

// Subscribe returns a channel of events. Call Unsubscribe when done.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	if _, ok := n.listeners[ch]; ok {
		delete(n.listeners, ch)
		close(ch)
	}
	n.mu.Unlock()
}

// Publish records a new generation for source and delivers it to every
// listener without blocking.
func (n *Notifier) Publish(source string) Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.last = Event{Generation: n.last.Generation + 1, Source: source}
	for ch := range n.listeners {
		select {
		case <-ch:
		default:
		}
		ch <- n.last
	}
	return n.last
}

// Last returns the most recent event.
func (n *Notifier) Last() Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

// Len returns the number of subscribers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
