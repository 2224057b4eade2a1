package sessions

import (
	"testing"
	"time"

	"github.com/cocodehq/cocode/pkg/models"
)

func newTestSession(id string) *models.Session {
	return models.NewSessionWithID(id, "/work",
		models.NewRoleSelection(models.NewModelSpec("openai", "gpt-5")))
}

func TestStore_SaveGetRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	session := newTestSession("s1")
	session.Title = "my task"

	if err := store.Save(session); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Get("s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.ID != "s1" || loaded.Title != "my task" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Model() != "gpt-5" {
		t.Errorf("model = %q", loaded.Model())
	}
	if !loaded.LastActivityAt.Equal(session.LastActivityAt) {
		t.Error("timestamp should round-trip losslessly")
	}
}

func TestStore_EphemeralNotSaved(t *testing.T) {
	store := NewStore(t.TempDir())
	session := newTestSession("tmp")
	session.Ephemeral = true
	if err := store.Save(session); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Get("tmp"); err == nil {
		t.Error("ephemeral session should not be on disk")
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := NewStore(t.TempDir())

	old := newTestSession("old")
	old.LastActivityAt = time.Now().Add(-time.Hour)
	recent := newTestSession("recent")

	if err := store.Save(old); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(recent); err != nil {
		t.Fatal(err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "recent" || list[1].ID != "old" {
		t.Errorf("list order = %v", []string{list[0].ID, list[1].ID})
	}
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(t.TempDir())
	session := newTestSession("gone")
	if err := store.Save(session); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SessionDir("gone"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get("gone"); err == nil {
		t.Error("deleted session should be gone")
	}
}

func TestStore_ListEmptyDir(t *testing.T) {
	store := NewStore(t.TempDir() + "/nonexistent")
	list, err := store.List()
	if err != nil || list != nil {
		t.Errorf("empty store: list=%v err=%v", list, err)
	}
}
