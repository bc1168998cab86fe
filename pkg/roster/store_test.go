package roster

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*Store, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	store := NewStore(storage, nil)
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return store, storage
}

func strPtr(s string) *string {
	return &s
}

func TestStore_Get(t *testing.T) {
	t.Run("returns transient record with fallback name", func(t *testing.T) {
		store, _ := newTestStore(t)

		rec := store.Get("42", "Alice")
		if rec.ID != "42" {
			t.Errorf("Expected id 42, got %s", rec.ID)
		}
		if rec.Name == nil || *rec.Name != "Alice" {
			t.Errorf("Expected name Alice, got %v", rec.Name)
		}
		if rec.Status != StatusNone || rec.Notes != nil {
			t.Error("Transient record should have unset status and notes")
		}
		if store.Len() != 0 {
			t.Error("Get must not persist a transient record")
		}
	})

	t.Run("returns stored record when present", func(t *testing.T) {
		store, _ := newTestStore(t)

		if err := store.Add(Record{ID: "7", Status: StatusFriend}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		rec := store.Get("7", "ignored")
		if rec.Status != StatusFriend {
			t.Errorf("Expected stored friend status, got %q", rec.Status)
		}
	})
}

func TestStore_ToggleFriend(t *testing.T) {
	t.Run("persists exactly the expected array", func(t *testing.T) {
		store, storage := newTestStore(t)

		rec := store.Get("42", "Alice")
		if _, err := store.ToggleFriend(rec); err != nil {
			t.Fatalf("ToggleFriend failed: %v", err)
		}

		if !store.IsFriend("42") {
			t.Error("Expected 42 to be a friend")
		}

		data, found, err := storage.Read(StorageKey)
		if err != nil || !found {
			t.Fatalf("Expected persisted roster, found=%v err=%v", found, err)
		}
		expected := `[{"id":"42","name":"Alice","status":"friend","notes":null}]`
		if string(data) != expected {
			t.Errorf("Persisted %s, expected %s", data, expected)
		}
	})

	t.Run("is an involution", func(t *testing.T) {
		store, _ := newTestStore(t)

		rec := store.Get("42", "Alice")
		first, err := store.ToggleFriend(rec)
		if err != nil {
			t.Fatalf("first toggle failed: %v", err)
		}
		if _, err := store.ToggleFriend(first); err != nil {
			t.Fatalf("second toggle failed: %v", err)
		}

		if store.IsFriend("42") || store.IsBlocked("42") {
			t.Error("Double toggle must restore original membership")
		}
		if store.Len() != 0 {
			t.Error("Record with no status and no notes must be pruned")
		}
	})

	t.Run("friend and blocked are mutually exclusive", func(t *testing.T) {
		store, _ := newTestStore(t)

		rec, err := store.ToggleFriend(store.Get("9", "Bob"))
		if err != nil {
			t.Fatalf("ToggleFriend failed: %v", err)
		}
		if _, err := store.ToggleBlocked(rec); err != nil {
			t.Fatalf("ToggleBlocked failed: %v", err)
		}

		if store.IsFriend("9") {
			t.Error("Blocking must clear friend status")
		}
		if !store.IsBlocked("9") {
			t.Error("Expected 9 to be blocked")
		}
	})

	t.Run("stored record wins over stale caller copy", func(t *testing.T) {
		store, _ := newTestStore(t)

		stale := store.Get("5", "Eve")
		if _, err := store.SetNote(stale, strPtr("keep me")); err != nil {
			t.Fatalf("SetNote failed: %v", err)
		}

		// Toggling with the stale transient must not wipe the note.
		if _, err := store.ToggleFriend(stale); err != nil {
			t.Fatalf("ToggleFriend failed: %v", err)
		}
		if store.GetNotes("5") != "keep me" {
			t.Errorf("Note lost across toggle: %q", store.GetNotes("5"))
		}
	})
}

func TestStore_SetNote(t *testing.T) {
	t.Run("nil note with no status prunes the record", func(t *testing.T) {
		store, _ := newTestStore(t)

		rec, err := store.SetNote(store.Get("3", ""), strPtr("suspicious"))
		if err != nil {
			t.Fatalf("SetNote failed: %v", err)
		}
		if store.Len() != 1 {
			t.Fatal("Expected one stored record")
		}

		if _, err := store.SetNote(rec, nil); err != nil {
			t.Fatalf("clearing note failed: %v", err)
		}
		if store.Len() != 0 {
			t.Error("Clearing the only annotation must remove the id entirely")
		}
	})

	t.Run("empty string is a real note", func(t *testing.T) {
		store, _ := newTestStore(t)

		if _, err := store.SetNote(store.Get("3", ""), strPtr("")); err != nil {
			t.Fatalf("SetNote failed: %v", err)
		}
		if store.Len() != 1 {
			t.Error("An explicit empty note must keep the record persisted")
		}
	})

	t.Run("GetNotes on never-seen id returns empty string", func(t *testing.T) {
		store, _ := newTestStore(t)
		if notes := store.GetNotes("404"); notes != "" {
			t.Errorf("Expected empty notes, got %q", notes)
		}
	})
}

func TestStore_Prune(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.Add(Record{ID: "8", Status: StatusBlocked}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// Prune must refuse to drop a record that still carries meaning.
	if err := store.Prune("8"); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if store.Len() != 1 {
		t.Error("Prune removed a non-empty record")
	}
}

func TestStore_Load(t *testing.T) {
	t.Run("missing key yields empty roster", func(t *testing.T) {
		store := NewStore(NewMemoryStorage(), nil)
		if err := store.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if store.Len() != 0 {
			t.Error("Expected empty roster")
		}
	})

	t.Run("malformed payload yields empty roster", func(t *testing.T) {
		storage := NewMemoryStorage()
		if err := storage.Write(StorageKey, []byte("{not json")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		store := NewStore(storage, nil)
		if err := store.Load(); err != nil {
			t.Fatalf("Load must not propagate a parse failure: %v", err)
		}
		if store.Len() != 0 {
			t.Error("Expected empty roster after malformed payload")
		}
	})

	t.Run("rebuilds derived sets from persisted data", func(t *testing.T) {
		storage := NewMemoryStorage()
		payload := `[{"id":"1","name":"A","status":"friend","notes":null},` +
			`{"id":"2","name":null,"status":"blocked","notes":"grief"},` +
			`{"id":"3","name":"C","status":null,"notes":null}]`
		if err := storage.Write(StorageKey, []byte(payload)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		store := NewStore(storage, nil)
		if err := store.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if !store.IsFriend("1") || !store.IsBlocked("2") {
			t.Error("Derived sets not rebuilt from persisted data")
		}
		if store.Len() != 2 {
			t.Errorf("Empty persisted record must be dropped on load, len=%d", store.Len())
		}
		if store.GetNotes("2") != "grief" {
			t.Errorf("Expected note for 2, got %q", store.GetNotes("2"))
		}
	})
}

func TestFileStorage(t *testing.T) {
	t.Run("round trips through the data directory", func(t *testing.T) {
		dir := t.TempDir()
		storage, err := NewFileStorage(dir)
		if err != nil {
			t.Fatalf("NewFileStorage failed: %v", err)
		}

		if _, found, err := storage.Read(StorageKey); err != nil || found {
			t.Fatalf("Expected missing key, found=%v err=%v", found, err)
		}

		if err := storage.Write(StorageKey, []byte(`[]`)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		data, found, err := storage.Read(StorageKey)
		if err != nil || !found {
			t.Fatalf("Read failed, found=%v err=%v", found, err)
		}
		if string(data) != "[]" {
			t.Errorf("Expected [], got %s", data)
		}

		if _, err := os.Stat(filepath.Join(dir, StorageKey+".json")); err != nil {
			t.Errorf("Expected roster file on disk: %v", err)
		}
	})

	t.Run("survives store load/mutate cycle", func(t *testing.T) {
		dir := t.TempDir()
		storage, err := NewFileStorage(dir)
		if err != nil {
			t.Fatalf("NewFileStorage failed: %v", err)
		}

		store := NewStore(storage, nil)
		if err := store.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if _, err := store.ToggleBlocked(store.Get("13", "Mallory")); err != nil {
			t.Fatalf("ToggleBlocked failed: %v", err)
		}

		reopened := NewStore(storage, nil)
		if err := reopened.Load(); err != nil {
			t.Fatalf("reopen Load failed: %v", err)
		}
		if !reopened.IsBlocked("13") {
			t.Error("Blocked status lost across reopen")
		}
	})
}
