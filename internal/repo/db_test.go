package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	base := t.TempDir()
	bad := filepath.Join(base, "does-not-exist", "app.db")

	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}

	lower := strings.ToLower(err.Error())
	if !(os.IsNotExist(err) ||
		strings.Contains(lower, "unable to open database file") ||
		strings.Contains(lower, "no such file or directory") ||
		strings.Contains(lower, "out of memory")) {
		t.Fatalf("unexpected error opening %q: %v", bad, err)
	}
}

func Test_dsn(t *testing.T) {
	cases := map[string]string{
		"app.db":                  "app.db?_pragma=",
		"file:x.db?mode=rwc":      "file:x.db?mode=rwc&_pragma=",
		"/var/lib/agent/agent.db": "/var/lib/agent/agent.db?_pragma=",
	}
	for in, prefix := range cases {
		got := dsn(in)
		if !strings.HasPrefix(got, prefix) {
			t.Fatalf("dsn(%q) = %q, want prefix %q", in, got, prefix)
		}
		if n := strings.Count(got, "_pragma="); n != len(pragmas) {
			t.Fatalf("dsn(%q) has %d pragmas, want %d", in, n, len(pragmas))
		}
		if strings.Count(got, "?") != 1 {
			t.Fatalf("dsn(%q) = %q has more than one query separator", in, got)
		}
	}
}

func TestOpenSQLite_PragmasOnEveryConnection_AndAutoMigrate(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "agent.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != maxOpenConns {
		t.Fatalf("MaxOpenConnections=%d, want %d", stats.MaxOpenConnections, maxOpenConns)
	}

	// Hold two connections at once so the second one is freshly dialed.
	ctx := context.Background()
	for i := range 2 {
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		defer conn.Close()

		var journal string
		var fk, busy int
		if err := conn.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&journal); err != nil {
			t.Fatalf("journal_mode: %v", err)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys;").Scan(&fk); err != nil {
			t.Fatalf("foreign_keys: %v", err)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout;").Scan(&busy); err != nil {
			t.Fatalf("busy_timeout: %v", err)
		}
		if strings.ToLower(journal) != "wal" || fk != 1 || busy != 5000 {
			t.Fatalf("conn %d pragmas: journal=%q fk=%d busy=%d", i, journal, fk, busy)
		}
	}

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&domain.Interaction{}, &domain.RespondedHash{}, &domain.ReplyMemory{}, &domain.ResponseClaim{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	now := time.Now().UTC()
	in := &domain.Interaction{ID: "i1", RoomID: "0xroot", AuthorID: "7", CastHash: "0xabc", Kind: domain.KindMention, Text: "hi", Metadata: "{}", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(in).Error; err != nil {
		t.Fatalf("insert interaction: %v", err)
	}
	var got domain.Interaction
	if err := db.First(&got, "id = ?", "i1").Error; err != nil || got.AuthorID != "7" {
		t.Fatalf("readback interaction failed: err=%v got=%+v", err, got)
	}
}

var _ func(string) (*gorm.DB, error) = OpenSQLite
