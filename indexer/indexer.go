// Package indexer persists committed ledger events into a SQL store so they
// can be queried by type and by the listing, lease or escrow they concern.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rentchain/core/events"
	"rentchain/core/types"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type eventWithPayload interface {
	Event() *types.Event
}

// Indexer is an events.Emitter that writes every event it receives.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	seq uint64
}

var _ events.Emitter = (*Indexer)(nil)

// Open connects to the sqlite database at dsn and migrates the schema.
func Open(dsn string, log *slog.Logger) (*Indexer, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("indexer: dsn required")
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return New(db, log)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, log *slog.Logger) (*Indexer, error) {
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	var last EventRecord
	var seq uint64
	res := db.Order("seq desc").Limit(1).Find(&last)
	if res.Error != nil {
		return nil, fmt.Errorf("indexer: load sequence: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		seq = last.Seq
	}
	return &Indexer{db: db, logger: log, now: time.Now, seq: seq}, nil
}

// Close releases the underlying connection pool.
func (ix *Indexer) Close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Emit implements events.Emitter. Failures are logged, never propagated: the
// ledger has already committed by the time events are emitted.
func (ix *Indexer) Emit(evt events.Event) {
	payload, ok := evt.(eventWithPayload)
	if !ok {
		return
	}
	e := payload.Event()
	if e == nil {
		return
	}
	if err := ix.Record(e); err != nil {
		ix.logger.Error("index event", slog.String("type", e.Type), slog.String("error", err.Error()))
	}
}

// Record stores e with the next sequence number.
func (ix *Indexer) Record(e *types.Event) error {
	attrs, err := json.Marshal(e.Attributes)
	if err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	rec := EventRecord{
		ID:         uuid.New(),
		Seq:        ix.seq + 1,
		Type:       e.Type,
		Listing:    e.Attributes["listing"],
		Lease:      e.Attributes["lease"],
		Escrow:     e.Attributes["escrow"],
		Attributes: string(attrs),
		CreatedAt:  ix.now().UTC(),
	}
	if err := ix.db.Create(&rec).Error; err != nil {
		return err
	}
	ix.seq = rec.Seq
	return nil
}

// Filter narrows List results. Address matches the listing, lease or escrow
// an event concerns, in 0x-hex form.
type Filter struct {
	Type    string
	Address string
	After   uint64
	Limit   int
}

// Entry is an indexed event as returned by List.
type Entry struct {
	Seq        uint64            `json:"seq"`
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	IndexedAt  time.Time         `json:"indexedAt"`
}

// List returns events in sequence order.
func (ix *Indexer) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	q := ix.db.WithContext(ctx).Model(&EventRecord{}).Where("seq > ?", f.After)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if addr := strings.ToLower(strings.TrimSpace(f.Address)); addr != "" {
		q = q.Where("listing = ? OR lease = ? OR escrow = ?", addr, addr, addr)
	}
	var records []EventRecord
	if err := q.Order("seq asc").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("indexer: list: %w", err)
	}
	out := make([]Entry, 0, len(records))
	for _, rec := range records {
		attrs := map[string]string{}
		if err := json.Unmarshal([]byte(rec.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("indexer: decode event %d: %w", rec.Seq, err)
		}
		out = append(out, Entry{Seq: rec.Seq, ID: rec.ID.String(), Type: rec.Type, Attributes: attrs, IndexedAt: rec.CreatedAt})
	}
	return out, nil
}
