package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRecordAndListInvocations(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []Invocation{
		{ToolName: "project_build", Origin: OriginNative, Outcome: "ok", Duration: 1200 * time.Millisecond, CreatedAt: base},
		{ToolName: "companion_echo", RemoteName: "echo", Origin: OriginCompanion, Outcome: "ok", Duration: 40 * time.Millisecond, CreatedAt: base.Add(time.Second)},
		{ToolName: "companion_fail", RemoteName: "fail", Origin: OriginCompanion, Outcome: "call-timeout", Duration: 60 * time.Second, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, record := range records {
		if err := store.RecordInvocation(ctx, record); err != nil {
			t.Fatalf("record %s: %v", record.ToolName, err)
		}
	}

	recent, err := store.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 invocations, got %d", len(recent))
	}
	if recent[0].ToolName != "companion_fail" || recent[2].ToolName != "project_build" {
		t.Fatalf("expected newest-first ordering, got %q .. %q", recent[0].ToolName, recent[2].ToolName)
	}
	if recent[0].Outcome != "call-timeout" {
		t.Fatalf("expected outcome preserved, got %q", recent[0].Outcome)
	}
	if recent[1].RemoteName != "echo" || recent[1].Origin != OriginCompanion {
		t.Fatalf("expected provenance preserved, got %+v", recent[1])
	}
	if !recent[2].CreatedAt.Equal(base) {
		t.Fatalf("expected created-at round trip, got %v", recent[2].CreatedAt)
	}
}

func TestListRecentHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := range 5 {
		invocation := Invocation{
			ToolName:  "toolchain_version",
			Outcome:   "ok",
			CreatedAt: time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
		}
		if err := store.RecordInvocation(ctx, invocation); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(recent))
	}
}

func TestRecordInvocationValidates(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordInvocation(context.Background(), Invocation{}); err == nil {
		t.Fatal("expected error for missing tool name")
	}
	if _, err := store.ListRecent(context.Background(), 0); err == nil {
		t.Fatal("expected error for non-positive limit")
	}
}

func TestRecordInvocationDefaults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordInvocation(ctx, Invocation{ToolName: "status"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	recent, err := store.ListRecent(ctx, 1)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if recent[0].Origin != OriginNative || recent[0].Outcome != "ok" {
		t.Fatalf("expected defaults applied, got %+v", recent[0])
	}
	if recent[0].CreatedAt.IsZero() {
		t.Fatal("expected created-at default")
	}
}
