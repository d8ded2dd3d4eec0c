package session

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Anzelak/goblin-ball/game/service"
)

func newTestPersistence(t *testing.T) (*FilePersistence, string) {
	t.Helper()
	dir := t.TempDir()
	fp, err := NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	return fp, dir
}

func advance(t *testing.T, s *service.Session, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := s.Controller.Advance(); err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
	}
}

func TestFilePersistence_SaveLoad(t *testing.T) {
	fp, _ := newTestPersistence(t)

	original, err := Build("abcd", createTestSpec(7), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	original.CreatedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	original.LastAccessedAt = original.CreatedAt.Add(time.Minute)
	advance(t, original, 5)

	if err := fp.Save(original); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	if !fp.Exists("abcd") {
		t.Fatal("session file should exist after save")
	}

	loaded, err := fp.Load("abcd")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}

	if loaded.Controller.Steps() != 5 {
		t.Errorf("replayed steps = %d, want 5", loaded.Controller.Steps())
	}
	if !reflect.DeepEqual(loaded.Controller.Snapshot(), original.Controller.Snapshot()) {
		t.Error("replayed snapshot differs from the original")
	}
	if !reflect.DeepEqual(loaded.Controller.Events(), original.Controller.Events()) {
		t.Error("replayed event history differs from the original")
	}
	if !loaded.CreatedAt.Equal(original.CreatedAt) || !loaded.LastAccessedAt.Equal(original.LastAccessedAt) {
		t.Errorf("timestamps not restored: %v %v", loaded.CreatedAt, loaded.LastAccessedAt)
	}
	if loaded.Spec.Home != "Gobs" || loaded.Spec.Rules.PlaysPerGame != 2 {
		t.Errorf("spec not restored: %+v", loaded.Spec)
	}

	// Both copies continue identically.
	a, _ := original.Controller.Advance()
	b, _ := loaded.Controller.Advance()
	if a.Kind != b.Kind || a.Play != b.Play || a.Turn != b.Turn {
		t.Errorf("next steps diverge: %+v vs %+v", a, b)
	}
}

func TestFilePersistence_FinishedGame(t *testing.T) {
	fp, _ := newTestPersistence(t)
	original, _ := Build("done", createTestSpec(3), nil)
	for !original.Controller.Over() {
		advance(t, original, 1)
	}
	if err := fp.Save(original); err != nil {
		t.Fatal(err)
	}

	loaded, err := fp.Load("done")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Controller.Over() {
		t.Fatal("restored game should be over")
	}
	want, _ := original.Controller.Result()
	got, _ := loaded.Controller.Result()
	if got != want {
		t.Errorf("result = %+v, want %+v", got, want)
	}
}

func TestFilePersistence_Errors(t *testing.T) {
	fp, dir := newTestPersistence(t)

	t.Run("load missing", func(t *testing.T) {
		if _, err := fp.Load("none"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("load corrupt", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := fp.Load("bad"); err == nil {
			t.Error("Expected error for corrupt file")
		}
	})

	t.Run("load without rules", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "norules.json"), []byte(`{"id":"norules","steps":1}`), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := fp.Load("norules"); err == nil {
			t.Error("Expected error for missing rules")
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		if _, err := fp.Load("../x"); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
		if fp.Exists("../x") {
			t.Error("Exists should be false for invalid IDs")
		}
	})

	t.Run("save nil", func(t *testing.T) {
		if err := fp.Save(nil); err == nil {
			t.Error("Expected error for nil session")
		}
	})

	t.Run("delete missing", func(t *testing.T) {
		if err := fp.Delete("none"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestFilePersistence_ListAll(t *testing.T) {
	fp, dir := newTestPersistence(t)
	for _, id := range []string{"aa11", "bb22"} {
		s, _ := Build(id, createTestSpec(1), nil)
		if err := fp.Save(s); err != nil {
			t.Fatal(err)
		}
	}
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	_ = os.Mkdir(filepath.Join(dir, "sub.json"), 0o755)

	ids, err := fp.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"aa11", "bb22"}) {
		t.Errorf("ListAll = %v", ids)
	}

	if err := fp.Delete("aa11"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if fp.Exists("aa11") {
		t.Error("deleted session still exists")
	}
}
