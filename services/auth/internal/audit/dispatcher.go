package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const sinkTimeout = 5 * time.Second

// Dispatcher queues events on a buffered channel and writes them from one
// goroutine. Emit never blocks: a full buffer drops the event.
type Dispatcher struct {
	sink      Sink
	log       *slog.Logger
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(sink Sink, buffer int, log *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	if log == nil {
		log = slog.Default()
	}

	d := &Dispatcher{
		sink: sink,
		log:  log.With("component", "audit"),
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case e := <-d.ch:
			d.write(e)
		case <-d.done:
			for {
				select {
				case e := <-d.ch:
					d.write(e)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) write(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if err := d.sink.Write(ctx, e); err != nil {
		d.log.Warn("audit_write_failed", "type", e.Type, "user_id", e.UserID, "error", err)
	}
}

func (d *Dispatcher) Emit(ctx context.Context, e Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if e.RemoteIP == "" && ctx != nil {
		e.RemoteIP = RemoteIP(ctx)
	}

	select {
	case d.ch <- e:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
}

// Close stops accepting events and flushes what is queued.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
