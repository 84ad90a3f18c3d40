package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

func TestInteractionsStats_NoTable_Error(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, _, err := InteractionsStats(context.Background(), db, ""); err == nil {
		t.Fatalf("expected error due to missing interactions table")
	}
}

func TestInteractionsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, allModels()...)
	count, maxAt, err := InteractionsStats(context.Background(), db, "r")
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil, nil), got (%d, %v, %v)", count, maxAt, err)
	}
}

func TestInteractionsStats_FilterAndMax(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for room a
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)   // other room
	for i, seed := range []struct {
		room string
		at   time.Time
	}{{"a", t1}, {"a", t2}, {"b", t3}} {
		in := &domain.Interaction{ID: string(rune('x' + i)), RoomID: seed.room, AuthorID: "7", CastHash: "0x" + string(rune('x'+i)), Kind: domain.KindMention, Text: "t", CreatedAt: seed.at}
		if err := CreateInteraction(ctx, db, in); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	count, maxAt, err := InteractionsStats(ctx, db, "a")
	if err != nil {
		t.Fatalf("InteractionsStats: %v", err)
	}
	if count != 2 || maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected (2, %v), got (%d, %v)", t2, count, maxAt)
	}
	count, maxAt, _ = InteractionsStats(ctx, db, "")
	if count != 3 || !maxAt.Equal(t3) {
		t.Fatalf("unscoped stats unexpected: (%d, %v)", count, maxAt)
	}
}

func TestRepliesStats(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	seedInteraction(t, db, "i1", "r", "0xa")

	if n, at, err := RepliesStats(ctx, db, "i1"); err != nil || n != 0 || at != nil {
		t.Fatalf("empty stats unexpected: (%d, %v, %v)", n, at, err)
	}
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	m := &domain.ReplyMemory{InteractionID: "i1", RoomID: "r", ParentHash: "0xa", ReplyHash: "0xr", Text: "hi", Path: domain.PathDefault, CreatedAt: ts}
	if err := CreateReplyMemory(ctx, db, m); err != nil {
		t.Fatalf("CreateReplyMemory: %v", err)
	}
	n, at, err := RepliesStats(ctx, db, "i1")
	if err != nil || n != 1 || at == nil || !at.Equal(ts) {
		t.Fatalf("stats unexpected: (%d, %v, %v)", n, at, err)
	}
}
