package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pauljones0/shift-code-watcher/internal/models"
)

func sampleSet() models.KnownSet {
	seen := time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)
	set := models.NewKnownSet()
	set.UpdatedAt = seen
	set.Codes["T9RBB-WT3F3-W6KHZ-9BSHT-9FT5Z"] = models.KnownCode{
		Reward:    "3 Golden Keys",
		Added:     "Nov 20, 2025",
		Expiry:    "Nov 27, 2025",
		FirstSeen: seen,
		LastSeen:  seen,
	}
	set.Codes["GOLDEN1"] = models.KnownCode{Reward: "1 Golden Key", FirstSeen: seen, LastSeen: seen}
	return set
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "known_codes.json"))

	want := sampleSet()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Len() != want.Len() {
		t.Fatalf("Load() returned %d codes, want %d", got.Len(), want.Len())
	}
	for code, meta := range want.Codes {
		gotMeta, ok := got.Codes[code]
		if !ok {
			t.Errorf("code %s missing after round trip", code)
			continue
		}
		if gotMeta.Reward != meta.Reward || !gotMeta.FirstSeen.Equal(meta.FirstSeen) {
			t.Errorf("code %s = %+v, want %+v", code, gotMeta, meta)
		}
	}
	if !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, want.UpdatedAt)
	}
}

func TestFileStore_MissingFileIsFirstRun(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))

	set, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("Expected empty set, got %d codes", set.Len())
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Truncated JSON", `{"version": 2, "codes": {"GOLD`},
		{"Codes wrong type", `{"codes": 42}`},
		{"Code entry wrong type", `{"codes": {"GOLDEN1": "yes"}}`},
		{"Not an object", `["GOLDEN1"]`},
		{"Null document", `null`},
		{"Empty object", `{}`},
		{"Missing codes key", `{"foo": 1}`},
		{"Null codes", `{"version": 2, "codes": null}`},
		{"Empty file", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "known_codes.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := NewFileStore(path).Load(context.Background())
			var corruptErr *models.StoreCorruptError
			if !errors.As(err, &corruptErr) {
				t.Fatalf("Expected *models.StoreCorruptError, got %v", err)
			}
			if corruptErr.Location != path {
				t.Errorf("Location = %q, want %q", corruptErr.Location, path)
			}
		})
	}
}

func TestFileStore_ForwardTolerance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_codes.json")
	content := `{
  "version": 7,
  "schema_owner": "someone-newer",
  "codes": {
    "golden1": {"reward": "3 Golden Keys", "platform": "pc", "first_seen": "2025-11-20T12:00:00Z"}
  },
  "last_updated": "2025-11-21T08:00:00Z"
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	meta, ok := set.Codes["GOLDEN1"]
	if !ok {
		t.Fatal("Expected GOLDEN1 (normalized) to be loaded")
	}
	if meta.Reward != "3 Golden Keys" {
		t.Errorf("Reward = %q", meta.Reward)
	}
}

func TestFileStore_LegacyListShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_codes.json")
	content := `{
  "codes": ["T9RBB-WT3F3-W6KHZ-9BSHT-9FT5Z", "k9jbb-xxtbt-w6khz-3bjtb-9kzc5"],
  "last_updated": "2025-11-20T09:15:42.123456"
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("Expected 2 legacy codes, got %d", set.Len())
	}
	if !set.Contains("K9JBB-XXTBT-W6KHZ-3BJTB-9KZC5") {
		t.Error("Expected legacy code to be normalized")
	}
	if set.UpdatedAt.IsZero() {
		t.Error("Expected legacy last_updated to be parsed")
	}
}

func TestFileStore_SaveFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "known_codes.json")
	store := NewFileStore(path)

	if err := store.Save(ctx, sampleSet()); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// A missing parent directory makes the temp file creation fail.
	broken := NewFileStore(filepath.Join(dir, "missing-dir", "known_codes.json"))
	err = broken.Save(ctx, models.NewKnownSet())
	var writeErr *models.StoreWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Expected *models.StoreWriteError, got %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("Existing state file changed after an unrelated failed save")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the state file in %s, found %d entries", dir, len(entries))
	}
}

func TestFileStore_RenameOverDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_codes.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "keep"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := NewFileStore(path).Save(context.Background(), sampleSet())
	var writeErr *models.StoreWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Expected *models.StoreWriteError, got %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Temp file left behind: %d entries in %s", len(entries), dir)
	}
}

func TestEncode_Stable(t *testing.T) {
	a, err := Encode(sampleSet())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode(sampleSet())
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("Encode() output is not deterministic")
	}
}

func TestFirestoreRecord_RoundTrip(t *testing.T) {
	rec, err := encodeRecord(sampleSet())
	if err != nil {
		t.Fatal(err)
	}
	if rec.Count != 2 {
		t.Errorf("Count = %d, want 2", rec.Count)
	}

	set, err := decodeRecord(rec, "shift_state/known_codes")
	if err != nil {
		t.Fatalf("decodeRecord() error = %v", err)
	}
	if !set.Contains("golden1") {
		t.Error("Expected GOLDEN1 after round trip")
	}
}

func TestFirestoreRecord_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		rec  stateRecord
	}{
		{"Empty payload", stateRecord{}},
		{"Garbage payload", stateRecord{Payload: "not json"}},
		{"Null payload", stateRecord{Payload: "null"}},
		{"Payload without codes", stateRecord{Payload: `{"version": 2}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRecord(tt.rec, "shift_state/known_codes")
			var corruptErr *models.StoreCorruptError
			if !errors.As(err, &corruptErr) {
				t.Errorf("Expected *models.StoreCorruptError, got %v", err)
			}
		})
	}
}

func TestFileStore_EmptySetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "known_codes.json"))

	if err := store.Save(ctx, models.NewKnownSet()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	set, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() of a saved empty set error = %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("Expected empty set, got %d codes", set.Len())
	}
}
