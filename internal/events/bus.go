package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const defaultBuffer = 256

// Emitter is what the core depends on to publish events.
type Emitter interface {
	Emit(Event)
}

// Bus fans events out to subscribers. Each subscriber has its own buffered
// channel; when it is full the event is dropped for that subscriber only.
// Events reach a subscriber in publish order.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]chan Event
	next    int
	dropped atomic.Uint64
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. buffer <= 0 uses a default size. The
// returned cancel func unregisters and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Emit publishes ev to every subscriber without blocking.
func (b *Bus) Emit(ev Event) {
	if b == nil || ev == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many deliveries were discarded because a subscriber
// was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// LogHook returns a zerolog hook that mirrors entries at info level and above
// onto the bus as LogEntry events.
func (b *Bus) LogHook() zerolog.Hook {
	return zerolog.HookFunc(func(_ *zerolog.Event, level zerolog.Level, msg string) {
		if level < zerolog.InfoLevel || level == zerolog.NoLevel || msg == "" {
			return
		}
		b.Emit(LogEntry{Time: time.Now(), Level: level.String(), Message: msg})
	})
}
