// Package ledger executes operations against shared state as serially
// ordered, all-or-nothing units.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rentchain/core/events"
	"rentchain/core/state"
	"rentchain/observability/metrics"
	"rentchain/storage"
)

// Clock supplies the current unix time to operations.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

// Now implements Clock.
func (f ClockFunc) Now() int64 { return f() }

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() int64 { return time.Now().Unix() }

// Tx is the view an operation gets of the ledger: a buffered state manager,
// the operation's timestamp and an event sink that is only flushed on commit.
type Tx struct {
	State *state.Manager

	op  string
	now int64
	buf events.Buffer
}

// Now returns the timestamp fixed for the whole operation.
func (tx *Tx) Now() int64 { return tx.now }

// Operation returns the operation name.
func (tx *Tx) Operation() string { return tx.op }

// Emit implements events.Emitter.
func (tx *Tx) Emit(evt events.Event) { tx.buf.Emit(evt) }

// Ledger serialises operations over a single database.
type Ledger struct {
	mu      sync.Mutex
	db      storage.Database
	clock   Clock
	last    int64
	emitter events.Emitter
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.RentalMetrics
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source. Primarily intended for tests.
func WithClock(clock Clock) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithEmitter sets the sink that receives events of committed operations.
func WithEmitter(emitter events.Emitter) Option {
	return func(l *Ledger) {
		if emitter != nil {
			l.emitter = emitter
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.RentalMetrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// New creates a ledger over db.
func New(db storage.Database, opts ...Option) *Ledger {
	l := &Ledger{
		db:      db,
		clock:   SystemClock{},
		emitter: events.NoopEmitter{},
		logger:  slog.Default(),
		tracer:  otel.Tracer("rentchain/ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// now never goes backwards even if the clock does.
func (l *Ledger) now() int64 {
	ts := l.clock.Now()
	if ts < l.last {
		ts = l.last
	}
	l.last = ts
	return ts
}

// Execute runs fn as one atomic operation. When fn returns an error (or
// panics) every buffered write and event is dropped and storage is left
// untouched; otherwise the writes are committed in one batch and the events are
// forwarded to the configured emitter.
func (l *Ledger) Execute(ctx context.Context, op string, fn func(*Tx) error) (err error) {
	if l == nil || l.db == nil {
		return errors.New("ledger: not configured")
	}
	if fn == nil {
		return errors.New("ledger: nil operation")
	}
	ctx, span := l.tracer.Start(ctx, "ledger."+op)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	tx := &Tx{State: state.NewManager(l.db), op: op, now: l.now()}
	span.SetAttributes(attribute.Int64("ledger.now", tx.now))
	defer func() {
		l.metrics.ObserveOperation(op, err, time.Since(start))
	}()

	if err = run(tx, fn); err != nil {
		tx.State.Discard()
		tx.buf.Reset()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.Debug("ledger operation rolled back", slog.String("operation", op), slog.String("error", err.Error()))
		return err
	}
	dirty := tx.State.Dirty()
	if err = tx.State.Commit(); err != nil {
		tx.buf.Reset()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.Error("ledger commit failed", slog.String("operation", op), slog.String("error", err.Error()))
		return err
	}
	span.SetAttributes(attribute.Int("ledger.writes", dirty))
	l.logger.Debug("ledger operation committed", slog.String("operation", op), slog.Int("writes", dirty), slog.Int64("now", tx.now))
	tx.buf.Flush(l.emitter)
	return nil
}

func run(tx *Tx, fn func(*Tx) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ledger: operation %s panicked: %v", tx.op, r)
		}
	}()
	return fn(tx)
}

// View runs fn against a read-only snapshot; any writes it makes are dropped.
func (l *Ledger) View(ctx context.Context, fn func(*state.Manager) error) error {
	if l == nil || l.db == nil {
		return errors.New("ledger: not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	m := state.NewManager(l.db)
	defer m.Discard()
	return fn(m)
}
