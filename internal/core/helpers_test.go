package core

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gwi.com/divination/internal/config"
	"gwi.com/divination/internal/content"
	"gwi.com/divination/internal/store"
)

// deterministicRNG replays fixed sequences, cycling when exhausted.
type deterministicRNG struct {
	ints   []int
	floats []float64
	ii, fi int
}

func (r *deterministicRNG) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[r.ii%len(r.ints)] % n
	r.ii++
	return v
}

func (r *deterministicRNG) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.99
	}
	v := r.floats[r.fi%len(r.floats)]
	r.fi++
	return v
}

func testTables(t *testing.T) *content.Tables {
	t.Helper()
	tables, err := content.Default()
	require.NoError(t, err)
	return tables
}

func seededRNG(t *testing.T) RNG {
	t.Helper()
	rng, err := NewRNG(20240325)
	require.NoError(t, err)
	return rng
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAIConfig() config.AIConfig {
	return config.AIConfig{
		Enabled:          true,
		Provider:         "stub",
		Timeout:          2 * time.Second,
		MinCompleteChars: 200,
		MinPartialChars:  50,
		RetryFailedInit:  true,
	}
}

// stubModel is a scriptable ModelCapability.
type stubModel struct {
	unavailable bool
	initDelay   time.Duration
	// initErrs[i] is returned by the i-th Initialize call; missing entries succeed.
	initErrs []error

	chunks     []string
	chunkDelay time.Duration
	genErr     error
	panicMsg   string
	// hang keeps the stream open after the last chunk until ctx is done.
	hang bool

	initCalls atomic.Int32
	genCalls  atomic.Int32
	canceled  chan struct{}
	once      sync.Once
}

func (m *stubModel) Available() bool { return !m.unavailable }

func (m *stubModel) Initialize(ctx context.Context) error {
	n := int(m.initCalls.Add(1))
	if m.initDelay > 0 {
		select {
		case <-time.After(m.initDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= len(m.initErrs) {
		return m.initErrs[n-1]
	}
	return nil
}

func (m *stubModel) Generate(ctx context.Context, prompt string) iter.Seq2[string, error] {
	m.genCalls.Add(1)
	return func(yield func(string, error) bool) {
		if m.panicMsg != "" {
			panic(m.panicMsg)
		}
		for _, c := range m.chunks {
			if m.chunkDelay > 0 {
				select {
				case <-time.After(m.chunkDelay):
				case <-ctx.Done():
					m.markCanceled()
					return
				}
			}
			if !yield(c, nil) {
				return
			}
		}
		if m.genErr != nil {
			yield("", m.genErr)
			return
		}
		if m.hang {
			<-ctx.Done()
			m.markCanceled()
		}
	}
}

func (m *stubModel) markCanceled() {
	m.once.Do(func() {
		if m.canceled != nil {
			close(m.canceled)
		}
	})
}

// memHistory is an in-memory HistoryStore.
type memHistory struct {
	mu        sync.Mutex
	entries   map[string][]store.Entry
	appendErr error
}

func newMemHistory() *memHistory {
	return &memHistory{entries: map[string][]store.Entry{}}
}

func (h *memHistory) Append(_ context.Context, e store.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.appendErr != nil {
		return h.appendErr
	}
	h.entries[e.Type] = append([]store.Entry{e}, h.entries[e.Type]...)
	return nil
}

func (h *memHistory) List(_ context.Context, readingType string) ([]store.Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]store.Entry{}, h.entries[readingType]...), nil
}

func (h *memHistory) Remove(_ context.Context, readingType, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.entries[readingType]
	for i, e := range list {
		if e.ID == id {
			h.entries[readingType] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (h *memHistory) Clear(_ context.Context, readingType string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, readingType)
	return nil
}

func (h *memHistory) ClearAll(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = map[string][]store.Entry{}
	return nil
}
