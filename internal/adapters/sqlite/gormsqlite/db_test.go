package gormsqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildDSNIncludesPerConnectionPragmas(t *testing.T) {
	reader := buildDSN("./db.sqlite", true)
	writer := buildDSN("./db.sqlite", false)

	checks := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=trusted_schema(OFF)",
	}
	for _, c := range checks {
		if !strings.Contains(reader, c) {
			t.Fatalf("reader dsn missing %q: %s", c, reader)
		}
		if !strings.Contains(writer, c) {
			t.Fatalf("writer dsn missing %q: %s", c, writer)
		}
	}

	if !strings.Contains(reader, "_pragma=query_only(1)") {
		t.Fatalf("reader dsn missing query_only(1): %s", reader)
	}
	if !strings.Contains(writer, "_pragma=query_only(0)") {
		t.Fatalf("writer dsn missing query_only(0): %s", writer)
	}
}

func TestBuildDSNWriterUsesImmediateTransactions(t *testing.T) {
	if !strings.Contains(buildDSN("x.sqlite", false), "_txlock=immediate") {
		t.Fatal("writer dsn must request immediate transactions")
	}
	if strings.Contains(buildDSN("x.sqlite", true), "_txlock") {
		t.Fatal("reader dsn must not set a transaction lock mode")
	}
}

func TestOpenAppliesPragmasToEveryConnection(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "pragma.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	var foreignKeys int
	if err := db.R.Raw("PRAGMA foreign_keys").Scan(&foreignKeys).Error; err != nil {
		t.Fatalf("read pragma: %v", err)
	}
	if foreignKeys != 1 {
		t.Fatalf("expected foreign_keys=1 on reader, got %d", foreignKeys)
	}

	err = db.ReadTX(context.Background(), func(tx *Tx) error {
		return tx.Exec("CREATE TABLE should_fail (id INTEGER)").Error
	})
	if err == nil {
		t.Fatal("reader must reject writes")
	}
	err = db.WriteTX(context.Background(), func(tx *Tx) error {
		return tx.Exec("CREATE TABLE ok (id INTEGER)").Error
	})
	if err != nil {
		t.Fatalf("writer exec: %v", err)
	}
}

func TestOpenOptionsAndPing(t *testing.T) {
	var logs strings.Builder
	db, err := Open(filepath.Join(t.TempDir(), "opts.sqlite"),
		WithQueryLog(true),
		WithReadConns(2),
		WithLogOutput(&logs),
	)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	rdb, err := db.R.DB()
	if err != nil {
		t.Fatalf("reader sql db: %v", err)
	}
	if got := rdb.Stats().MaxOpenConnections; got != 2 {
		t.Fatalf("expected 2 reader connections, got %d", got)
	}
	wdb, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer sql db: %v", err)
	}
	if got := wdb.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected a single writer connection, got %d", got)
	}

	if err := db.WriteTX(context.Background(), func(tx *Tx) error {
		return tx.Exec("CREATE TABLE logged (id INTEGER)").Error
	}); err != nil {
		t.Fatalf("writer exec: %v", err)
	}
	if !strings.Contains(logs.String(), "CREATE TABLE logged") {
		t.Fatalf("expected statement in query log, got %q", logs.String())
	}
}

func TestPingAfterCloseFails(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "closed.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := db.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on a closed db to fail")
	}
}
