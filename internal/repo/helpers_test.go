package repo

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func allModels() []any {
	return []any{&domain.Interaction{}, &domain.RespondedHash{}, &domain.ReplyMemory{}, &domain.ResponseClaim{}}
}

func seedInteraction(t *testing.T, db *gorm.DB, id, room, hash string) *domain.Interaction {
	t.Helper()
	in := &domain.Interaction{ID: id, RoomID: room, AuthorID: "7", CastHash: hash, Kind: domain.KindMention, Text: "hello"}
	if err := CreateInteraction(context.Background(), db, in); err != nil {
		t.Fatalf("seed interaction %s: %v", id, err)
	}
	return in
}
