package media

import (
	"sort"
	"sync"
)

// Listeners is an event fan-out that Element implementations embed.
// The zero value is ready to use.
type Listeners struct {
	mu       sync.Mutex
	nextID   int
	handlers map[EventKind]map[int]Handler
}

// Add registers h for kind and returns its removal function.
func (l *Listeners) Add(kind EventKind, h Handler) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handlers == nil {
		l.handlers = make(map[EventKind]map[int]Handler)
	}
	if l.handlers[kind] == nil {
		l.handlers[kind] = make(map[int]Handler)
	}
	id := l.nextID
	l.nextID++
	l.handlers[kind][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.handlers[kind], id)
		})
	}
}

// Emit calls every handler registered for kind, in registration order.
// Handlers run without the lock held and may register or remove handlers.
func (l *Listeners) Emit(kind EventKind) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.handlers[kind]))
	for id := range l.handlers[kind] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	hs := make([]Handler, 0, len(ids))
	for _, id := range ids {
		hs = append(hs, l.handlers[kind][id])
	}
	l.mu.Unlock()

	for _, h := range hs {
		h(kind)
	}
}

// Count returns the number of handlers registered for kind.
func (l *Listeners) Count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handlers[kind])
}
