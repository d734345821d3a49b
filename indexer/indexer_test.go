package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"rentchain/core/types"
)

type wrapped struct{ evt *types.Event }

func (w wrapped) EventType() string   { return w.evt.Type }
func (w wrapped) Event() *types.Event { return w.evt }

type bare struct{}

func (bare) EventType() string { return "bare" }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return db
}

func TestIndexerRecordsAndFilters(t *testing.T) {
	db := setupTestDB(t)
	ix, err := New(db, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lease := "0x00000000000000000000000000000000000000aa"
	ix.Emit(wrapped{&types.Event{Type: "lease.created", Attributes: map[string]string{"lease": lease, "listing": "0x01"}}})
	ix.Emit(wrapped{&types.Event{Type: "escrow.deposited", Attributes: map[string]string{"lease": lease, "escrow": "0x02"}}})
	ix.Emit(wrapped{&types.Event{Type: "property.created", Attributes: map[string]string{"listing": "0x03"}}})
	ix.Emit(bare{})

	all, err := ix.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Seq != 1 || all[2].Seq != 3 {
		t.Fatalf("unexpected entries %+v", all)
	}

	byLease, err := ix.List(context.Background(), Filter{Address: lease})
	if err != nil {
		t.Fatalf("list by lease: %v", err)
	}
	if len(byLease) != 2 {
		t.Fatalf("expected 2 lease events, got %d", len(byLease))
	}

	byType, err := ix.List(context.Background(), Filter{Type: "escrow.deposited"})
	if err != nil || len(byType) != 1 || byType[0].Attributes["escrow"] != "0x02" {
		t.Fatalf("unexpected type filter result %+v err=%v", byType, err)
	}

	page, err := ix.List(context.Background(), Filter{After: 1, Limit: 1})
	if err != nil || len(page) != 1 || page[0].Seq != 2 {
		t.Fatalf("unexpected page %+v err=%v", page, err)
	}

	reopened, err := New(db, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := reopened.Record(&types.Event{Type: "lease.ended", Attributes: map[string]string{}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	last, _ := reopened.List(context.Background(), Filter{After: 3})
	if len(last) != 1 || last[0].Seq != 4 {
		t.Fatalf("sequence not resumed: %+v", last)
	}
}
