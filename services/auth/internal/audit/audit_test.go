package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
	err    error
}

func (s *recordingSink) Write(_ context.Context, e Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestDispatcher_DeliversAndDrainsOnClose(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d := NewDispatcher(sink, 16, nil)

	ctx := WithRemoteIP(context.Background(), "10.0.0.1")
	for i := 1; i <= 5; i++ {
		d.Emit(ctx, Event{Type: EventLogout, UserID: uint(i)})
	}
	d.Close()

	events := sink.Events()
	require.Len(t, events, 5)
	for _, e := range events {
		assert.Equal(t, "10.0.0.1", e.RemoteIP)
		assert.False(t, e.At.IsZero())
	}

	d.Emit(ctx, Event{Type: EventLogout})
	assert.Len(t, sink.Events(), 5, "emit after close is ignored")
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(sink, 1, nil)

	// the worker holds at most one event and the buffer one more
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{Type: EventLoginFailed})
	}
	require.Eventually(t, func() bool { return d.Dropped() >= 8 }, time.Second, 5*time.Millisecond)

	close(sink.block)
	d.Close()
	assert.LessOrEqual(t, len(sink.Events()), 2)
}

func TestNilDispatcherIsSafe(t *testing.T) {
	t.Parallel()

	var d *Dispatcher
	d.Emit(context.Background(), Event{})
	d.Close()
	assert.Zero(t, d.Dropped())
}

func TestMultiSink_JoinsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	ok := &recordingSink{}
	bad := &recordingSink{err: boom}

	err := MultiSink{bad, ok}.Write(context.Background(), Event{Type: EventLogout})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.Events(), 1, "a failing sink does not stop the others")
}

type fakePublisher struct {
	key   string
	event any
}

func (p *fakePublisher) PublishEvent(_ context.Context, key string, event any) error {
	p.key = key
	p.event = event
	return nil
}

func TestKafkaSink_KeysByUser(t *testing.T) {
	t.Parallel()

	p := &fakePublisher{}
	e := Event{Type: EventRefreshRotated, UserID: 7, JTI: "abc"}
	require.NoError(t, KafkaSink{Producer: p}.Write(context.Background(), e))

	assert.Equal(t, "7", p.key)
	assert.Equal(t, e, p.event)
}

func TestElasticSink_IndexesEvent(t *testing.T) {
	t.Parallel()

	var (
		gotPath string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	sink := ElasticSink{Client: client, Index: "auth-audit"}
	err = sink.Write(context.Background(), Event{Type: EventReuseDetected, UserID: 3, JTI: "j1"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotPath, "/auth-audit/_doc"), gotPath)
	assert.Equal(t, "refresh_reuse_detected", gotBody["type"])
	assert.Equal(t, "j1", gotBody["jti"])
}

func TestElasticSink_ErrorResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	err = ElasticSink{Client: client, Index: "auth-audit"}.Write(context.Background(), Event{Type: EventLogout})
	assert.Error(t, err)
}
