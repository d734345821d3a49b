package ledger

import (
	"context"
	"errors"
	"testing"

	"rentchain/core/events"
	"rentchain/core/state"
	"rentchain/core/types"
	"rentchain/storage"
)

type record struct {
	Value uint64
}

type captureEmitter struct {
	got []string
}

func (c *captureEmitter) Emit(evt events.Event) { c.got = append(c.got, evt.EventType()) }

func TestExecuteCommitsWritesAndEvents(t *testing.T) {
	db := storage.NewMemDB()
	sink := &captureEmitter{}
	l := New(db, WithEmitter(sink), WithClock(ClockFunc(func() int64 { return 100 })))

	err := l.Execute(context.Background(), "write", func(tx *Tx) error {
		if tx.Now() != 100 {
			t.Fatalf("unexpected now %d", tx.Now())
		}
		tx.Emit(&types.Event{Type: "test.written"})
		return tx.State.KVPut([]byte("k"), &record{Value: 7})
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(sink.got) != 1 || sink.got[0] != "test.written" {
		t.Fatalf("expected committed event, got %v", sink.got)
	}
	var got record
	err = l.View(context.Background(), func(m *state.Manager) error {
		_, err := m.KVGet([]byte("k"), &got)
		return err
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if got.Value != 7 {
		t.Fatalf("unexpected value %d", got.Value)
	}
}

func TestExecuteRollsBackOnError(t *testing.T) {
	db := storage.NewMemDB()
	sink := &captureEmitter{}
	l := New(db, WithEmitter(sink))
	boom := errors.New("boom")

	err := l.Execute(context.Background(), "fail", func(tx *Tx) error {
		if err := tx.State.KVPut([]byte("k"), &record{Value: 1}); err != nil {
			return err
		}
		tx.Emit(&types.Event{Type: "test.never"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if db.Len() != 0 {
		t.Fatalf("rolled back operation wrote %d keys", db.Len())
	}
	if len(sink.got) != 0 {
		t.Fatalf("rolled back operation leaked events %v", sink.got)
	}
}

func TestExecuteRecoversPanics(t *testing.T) {
	db := storage.NewMemDB()
	l := New(db)
	err := l.Execute(context.Background(), "panic", func(tx *Tx) error {
		_ = tx.State.KVPut([]byte("k"), &record{Value: 1})
		panic("unexpected")
	})
	if err == nil {
		t.Fatalf("expected error from panicking operation")
	}
	if db.Len() != 0 {
		t.Fatalf("panicking operation wrote state")
	}
}

func TestClockNeverGoesBackwards(t *testing.T) {
	times := []int64{50, 40, 60}
	i := 0
	l := New(storage.NewMemDB(), WithClock(ClockFunc(func() int64 {
		ts := times[i]
		i++
		return ts
	})))
	var seen []int64
	for range times {
		if err := l.Execute(context.Background(), "tick", func(tx *Tx) error {
			seen = append(seen, tx.Now())
			return nil
		}); err != nil {
			t.Fatalf("execute: %v", err)
		}
	}
	if seen[0] != 50 || seen[1] != 50 || seen[2] != 60 {
		t.Fatalf("unexpected timestamps %v", seen)
	}
}

func TestExecuteHonoursCancelledContext(t *testing.T) {
	l := New(storage.NewMemDB())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := l.Execute(ctx, "cancelled", func(*Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected cancellation before running, err=%v called=%v", err, called)
	}
}
