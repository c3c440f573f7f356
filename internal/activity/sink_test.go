package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/metrics"
	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/models"
)

type memoryWriter struct {
	mu      sync.Mutex
	entries []models.ActivityEntry
	err     error
	block   chan struct{}
}

func (w *memoryWriter) Insert(_ context.Context, e models.ActivityEntry) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.entries = append(w.entries, e)
	return nil
}

func (w *memoryWriter) recorded() []models.ActivityEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.ActivityEntry(nil), w.entries...)
}

func TestAsyncSink_WritesAndDrainsOnClose(t *testing.T) {
	w := &memoryWriter{}
	m := metrics.New()
	sink := NewAsyncSink(w, 8, nil, m)

	for i := int64(1); i <= 3; i++ {
		sink.Record(context.Background(), models.ActivityEntry{Action: "create", EntityType: "ingredient", EntityID: i})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sink.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got := w.recorded()
	if len(got) != 3 {
		t.Fatalf("recorded %d entries, want 3", len(got))
	}
	for i, e := range got {
		if e.EventID == "" {
			t.Errorf("entry %d has no event id", i)
		}
		if e.EntityID != int64(i+1) {
			t.Errorf("entry %d entity = %d, want %d", i, e.EntityID, i+1)
		}
	}
	if n := testutil.ToFloat64(m.ActivityRecordedCounter()); n != 3 {
		t.Errorf("recorded counter = %v, want 3", n)
	}
}

func TestAsyncSink_DropsWhenFull(t *testing.T) {
	w := &memoryWriter{block: make(chan struct{})}
	m := metrics.New()
	sink := NewAsyncSink(w, 1, nil, m)

	// The first entry is taken by the writer, which then blocks; the second
	// fills the buffer; the remaining ones are dropped.
	sink.Record(context.Background(), models.ActivityEntry{Action: "a"})
	deadline := time.Now().Add(2 * time.Second)
	for len(sink.entries) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	sink.Record(context.Background(), models.ActivityEntry{Action: "b"})
	sink.Record(context.Background(), models.ActivityEntry{Action: "c"})
	sink.Record(context.Background(), models.ActivityEntry{Action: "d"})

	if n := testutil.ToFloat64(m.ActivityDroppedCounter()); n != 2 {
		t.Errorf("dropped counter = %v, want 2", n)
	}

	close(w.block)
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := len(w.recorded()); got != 2 {
		t.Errorf("recorded %d entries, want 2", got)
	}
}

func TestAsyncSink_WriteFailureIsSwallowed(t *testing.T) {
	w := &memoryWriter{err: errors.New("store down")}
	m := metrics.New()
	sink := NewAsyncSink(w, 4, nil, m)

	sink.Record(context.Background(), models.ActivityEntry{Action: "delete"})
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if n := testutil.ToFloat64(m.ActivityDroppedCounter()); n != 1 {
		t.Errorf("dropped counter = %v, want 1", n)
	}
}

func TestAsyncSink_RecordAfterClose(t *testing.T) {
	w := &memoryWriter{}
	sink := NewAsyncSink(w, 4, nil, nil)
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	sink.Record(context.Background(), models.ActivityEntry{Action: "late"})
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if got := len(w.recorded()); got != 0 {
		t.Errorf("recorded %d entries after close, want 0", got)
	}
}
