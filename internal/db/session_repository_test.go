package db

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jhead/phantom/internal/session"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()

	database, err := Open(filepath.Join(t.TempDir(), "phantom.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Initialize(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return database
}

func testRecord(id string, start time.Time) session.Record {
	return session.Record{
		ID:           id,
		ClientAddr:   "192.168.0.10:54321",
		UpstreamPort: 41234,
		BytesUp:      1024,
		BytesDown:    4096,
		PacketsUp:    8,
		PacketsDown:  16,
		StartTime:    start,
		EndTime:      start.Add(time.Minute),
	}
}

func TestCreateAndGetRecord(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), 10)

	want := testRecord("abc-123", time.Now().UTC().Truncate(time.Second))
	if err := repo.Create(want); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID("abc-123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ClientAddr != want.ClientAddr || got.BytesUp != want.BytesUp || got.BytesDown != want.BytesDown {
		t.Fatalf("record mismatch: got %+v, want %+v", got, want)
	}
	if got.UpstreamPort != want.UpstreamPort {
		t.Fatalf("upstream port: got %d, want %d", got.UpstreamPort, want.UpstreamPort)
	}
	if !got.StartTime.Equal(want.StartTime) {
		t.Fatalf("start time: got %v, want %v", got.StartTime, want.StartTime)
	}
}

func TestGetMissingRecord(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), 10)

	if _, err := repo.GetByID("nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("got %v, want sql.ErrNoRows", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), 10)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		rec := testRecord(fmt.Sprintf("s-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := repo.Create(rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	records, err := repo.List(10, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].ID != "s-2" || records[2].ID != "s-0" {
		t.Fatalf("wrong order: %s, %s, %s", records[0].ID, records[1].ID, records[2].ID)
	}
}

func TestCleanupTrimsOldest(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), 3)

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		rec := testRecord(fmt.Sprintf("s-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := repo.Create(rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("got %d records after trim, want 3", count)
	}

	// The survivors are the newest three.
	if _, err := repo.GetByID("s-0"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatal("oldest record survived the trim")
	}
	if _, err := repo.GetByID("s-4"); err != nil {
		t.Fatalf("newest record missing: %v", err)
	}
}

func TestDeleteRecord(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), 10)

	if err := repo.Create(testRecord("gone", time.Now())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Delete("gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete("gone"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("double delete: got %v, want sql.ErrNoRows", err)
	}
}

func TestClearHistory(t *testing.T) {
	repo := NewSessionRepository(openTestDB(t), 10)

	for i := 0; i < 3; i++ {
		if err := repo.Create(testRecord(fmt.Sprintf("s-%d", i), time.Now())); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if err := repo.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("got %d records after clear, want 0", count)
	}
}
