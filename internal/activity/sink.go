// Package activity records administrative actions off the request path.
package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/metrics"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
)

// Sink accepts activity entries. Record never blocks on storage and never
// reports failure to the caller.
type Sink interface {
	Record(ctx context.Context, e models.ActivityEntry)
}

// Writer persists one entry.
type Writer interface {
	Insert(ctx context.Context, e models.ActivityEntry) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(context.Context, models.ActivityEntry) {}

const writeTimeout = 5 * time.Second

// AsyncSink buffers entries and writes them from a single background
// goroutine. Entries arriving while the buffer is full are dropped.
type AsyncSink struct {
	writer  Writer
	log     *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	closed  bool
	entries chan models.ActivityEntry
	done    chan struct{}
}

// NewAsyncSink starts the background writer.
func NewAsyncSink(w Writer, buffer int, log *slog.Logger, m *metrics.Metrics) *AsyncSink {
	if buffer <= 0 {
		buffer = 1
	}
	if log == nil {
		log = slog.Default()
	}
	s := &AsyncSink{
		writer:  w,
		log:     log,
		metrics: m,
		entries: make(chan models.ActivityEntry, buffer),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Record enqueues e, assigning an event id when it has none. The request
// context is not used for the write so that a finished request does not
// cancel it.
func (s *AsyncSink) Record(_ context.Context, e models.ActivityEntry) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(e, "sink closed")
		return
	}
	select {
	case s.entries <- e:
	default:
		s.drop(e, "buffer full")
	}
}

func (s *AsyncSink) drop(e models.ActivityEntry, reason string) {
	s.metrics.ActivityDropped()
	s.log.Warn("activity entry dropped",
		"reason", reason,
		"event_id", e.EventID,
		"action", e.Action,
		"entity_type", e.EntityType,
		"entity_id", e.EntityID,
	)
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for e := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := s.writer.Insert(ctx, e)
		cancel()
		if err != nil {
			s.metrics.ActivityDropped()
			s.log.Error("failed to write activity entry",
				"error", err,
				"event_id", e.EventID,
				"action", e.Action,
			)
			continue
		}
		s.metrics.ActivityRecorded()
	}
}

// Close stops accepting entries and waits until the buffered ones are
// written or ctx is done.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
