package bus

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/missionctl/missionctl/internal/common/errors"
)

// InProcessBus is an EventBus that dispatches events to subscribers in the
// same process. It backs single-node deployments (nats.enabled=false) and tests.
type InProcessBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*inprocSubscription
	closed bool
}

// Ensure InProcessBus implements EventBus
var _ EventBus = (*InProcessBus)(nil)

// NewInProcessBus creates an empty in-process bus.
func NewInProcessBus() *InProcessBus {
	return &InProcessBus{subs: make(map[int]*inprocSubscription)}
}

// Publish delivers the event synchronously to every matching subscriber.
func (b *InProcessBus) Publish(ctx context.Context, subject string, event *Event) error {
	b.mu.RLock()
	var matched []*inprocSubscription
	for _, sub := range b.subs {
		if subjectMatches(sub.pattern, subject) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		sub.handler(event)
	}
	return nil
}

// Subscribe registers a handler for a subject pattern. Patterns follow NATS
// conventions: "*" matches one token, ">" matches the remainder.
func (b *InProcessBus) Subscribe(subject string, handler EventHandler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.InternalError("bus is closed", nil)
	}
	b.nextID++
	sub := &inprocSubscription{bus: b, id: b.nextID, pattern: subject, handler: handler}
	b.subs[sub.id] = sub
	return sub, nil
}

// QueueSubscribe behaves like Subscribe; queue-group load balancing is
// meaningless with a single process.
func (b *InProcessBus) QueueSubscribe(subject, queue string, handler EventHandler) (Subscription, error) {
	return b.Subscribe(subject, handler)
}

// Request is unsupported; nothing in-process replies to requests.
func (b *InProcessBus) Request(ctx context.Context, subject string, event *Event, timeout time.Duration) (*Event, error) {
	return nil, errors.InternalError("request/reply is not supported by the in-process bus", nil)
}

// Close removes all subscriptions.
func (b *InProcessBus) Close() {
	b.mu.Lock()
	b.subs = make(map[int]*inprocSubscription)
	b.closed = true
	b.mu.Unlock()
}

// IsConnected always reports true for the in-process bus.
func (b *InProcessBus) IsConnected() bool {
	return true
}

type inprocSubscription struct {
	bus     *InProcessBus
	id      int
	pattern string
	handler EventHandler
}

func (s *inprocSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
	return nil
}

// subjectMatches implements NATS-style subject matching.
func subjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return i < len(st)
		}
		if i >= len(st) {
			return false
		}
		if tok != "*" && tok != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
