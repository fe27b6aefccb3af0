// Package events provides the typed publish/subscribe bus used to report
// scan lifecycle events.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"contentmark/internal/schema"
	"contentmark/internal/schemadiff"
	"contentmark/internal/slogutil"
)

// Kind tags an event.
type Kind string

const (
	KindStart    Kind = "start"
	KindComplete Kind = "complete"
	KindError    Kind = "error"
	KindChange   Kind = "change"
)

// Event is a tagged union; which fields are set depends on Kind:
//
//	start     ScanID
//	complete  ScanID, Schema, Diff
//	error     ScanID (when a scan was running), Err
//	change    ChangedFile, Op
type Event struct {
	Kind        Kind
	Time        time.Time
	ScanID      string
	Schema      *schema.ProjectSchema
	Diff        *schemadiff.SchemaDiff
	Err         error
	ChangedFile string
	Op          string
}

// Start builds a start event.
func Start(scanID string) Event {
	return Event{Kind: KindStart, Time: time.Now(), ScanID: scanID}
}

// Complete builds a complete event.
func Complete(scanID string, s *schema.ProjectSchema, d *schemadiff.SchemaDiff) Event {
	return Event{Kind: KindComplete, Time: time.Now(), ScanID: scanID, Schema: s, Diff: d}
}

// Error builds an error event.
func Error(scanID string, err error) Event {
	return Event{Kind: KindError, Time: time.Now(), ScanID: scanID, Err: err}
}

// Change builds a change event for a debounced file system change.
func Change(file, op string) Event {
	return Event{Kind: KindChange, Time: time.Now(), ChangedFile: file, Op: op}
}

// Handler processes an event. Returned errors and panics are logged and
// never reach the publisher or other handlers.
type Handler func(ctx context.Context, e Event) error

type subscriber struct {
	id      uint64
	handler Handler
	kinds   map[Kind]struct{}
}

func (s *subscriber) wants(k Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// Bus delivers events synchronously to subscribers in registration order.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	nextID uint64
	logger *slog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{logger: logger}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.id)
	})
}

// Subscribe registers a handler for the given kinds, or for every kind when
// none are given.
func (b *Bus) Subscribe(h Handler, kinds ...Kind) *Subscription {
	sub := &subscriber{handler: h}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return &Subscription{bus: b, id: sub.id}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish calls every matching handler. Handlers may subscribe or
// unsubscribe while an event is being delivered.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	matched := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(e.Kind) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	b.logger.Debug("Event emitted",
		"kind", string(e.Kind),
		slogutil.ScanIDKey, e.ScanID,
		"subscribers", len(matched),
	)

	for _, s := range matched {
		if err := b.deliver(ctx, s, e); err != nil {
			b.logger.Error("Event handler error",
				"kind", string(e.Kind),
				"subscriber", s.id,
				"error", err.Error(),
			)
		}
	}
}

func (b *Bus) deliver(ctx context.Context, s *subscriber, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return s.handler(ctx, e)
}
