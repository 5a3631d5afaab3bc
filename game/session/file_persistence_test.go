package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
	"github.com/wricardo/mcp-training/tankbattle/game/strategy"
)

func TestFilePersistence(t *testing.T) {
	dir := t.TempDir()
	persistence, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	manager := NewManager()

	spec := service.MatchSpec{
		Board:   "test",
		Player1: service.PlayerSpec{Strategy: "manual"},
		Player2: service.PlayerSpec{Strategy: "scripted", Options: strategy.Options{Script: []engine.Action{engine.RotateLeftEighth}, Loop: true}},
	}
	session, err := manager.Create("save1", createTestBoard(), spec, engine.Rules{InitialShells: 3, MaxTurns: 50})
	if err != nil {
		t.Fatalf("Failed to create match: %v", err)
	}
	session.Engine.Step()
	session.Engine.Step()

	t.Run("save and load round trip", func(t *testing.T) {
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		if !persistence.Exists("save1") {
			t.Fatal("Expected file to exist after save")
		}

		loaded, err := persistence.Load("save1")
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		state := loaded.Engine.State()
		if state.Turn != 2 {
			t.Errorf("Expected turn 2, got %d", state.Turn)
		}
		if got := state.Tank(2).Facing; got != engine.Left.Rotate(-2) {
			t.Errorf("Expected tank 2 rotated twice, got %s", got)
		}
		if loaded.Engine.Rules().MaxTurns != 50 || state.Tank(1).Shells != 3 {
			t.Errorf("Rules not restored: %+v", loaded.Engine.Rules())
		}
		if len(state.History) != 2 {
			t.Errorf("Expected 2 history records, got %d", len(state.History))
		}
		if loaded.Player2.Strategy != "scripted" || len(loaded.Player2.Options.Script) != 1 {
			t.Errorf("Player spec not restored: %+v", loaded.Player2)
		}
		if _, ok := loaded.Engine.Controller(1).(*strategy.Manual); !ok {
			t.Error("Expected manual controller rebuilt for player 1")
		}

		// the restored controller keeps playing its script
		loaded.Engine.Step()
		if got := loaded.Engine.State().Tank(2).Facing; got != engine.Left.Rotate(-3) {
			t.Errorf("Expected scripted rotation after restore, got %s", got)
		}
	})

	t.Run("list all", func(t *testing.T) {
		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		if len(ids) != 1 || ids[0] != "save1" {
			t.Errorf("Expected [save1], got %v", ids)
		}
	})

	t.Run("load missing", func(t *testing.T) {
		if _, err := persistence.Load("nope"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if _, err := persistence.Load("../nope"); err != ErrInvalidSessionID {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := persistence.Load("junk"); err == nil {
			t.Error("Expected error for corrupt file")
		}
		os.Remove(filepath.Join(dir, "junk.json"))
	})

	t.Run("delete", func(t *testing.T) {
		if err := persistence.Delete("save1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if persistence.Exists("save1") {
			t.Error("Expected file removed")
		}
		if err := persistence.Delete("save1"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestFilePersistenceFileStructure(t *testing.T) {
	dir := t.TempDir()
	persistence, _ := NewFilePersistence(dir)
	manager := NewManagerWithPersistence(persistence)

	if _, err := manager.Create("shape", createTestBoard(), testSpec(), engine.DefaultRules()); err != nil {
		t.Fatalf("Failed to create match: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "shape.json"))
	if err != nil {
		t.Fatalf("Expected auto-saved file: %v", err)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	for _, field := range []string{"id", "board_id", "board", "player1", "player2", "created_at", "last_accessed_at", "game_state"} {
		if _, ok := data[field]; !ok {
			t.Errorf("Missing field %q", field)
		}
	}
}

func TestManagerWithPersistence(t *testing.T) {
	dir := t.TempDir()
	persistence, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	manager := NewManagerWithPersistence(persistence)

	session, err := manager.Create("auto1", createTestBoard(), testSpec(), engine.DefaultRules())
	if err != nil {
		t.Fatalf("Failed to create match: %v", err)
	}
	if !persistence.Exists(session.ID) {
		t.Error("Match should be auto-saved on creation")
	}

	session.Engine.Step()
	if err := manager.Save("auto1"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Run("get loads from persistence", func(t *testing.T) {
		fresh := NewManagerWithPersistence(persistence)
		loaded, err := fresh.Get("AUTO1")
		if err != nil {
			t.Fatalf("Failed to load persisted match: %v", err)
		}
		if loaded.Engine.State().Turn != 1 {
			t.Errorf("Expected turn 1, got %d", loaded.Engine.State().Turn)
		}
		if fresh.Count() != 1 {
			t.Errorf("Expected match cached in memory, count %d", fresh.Count())
		}
	})

	t.Run("load all persisted", func(t *testing.T) {
		manager.Create("auto2", createTestBoard(), testSpec(), engine.DefaultRules())

		fresh := NewManagerWithPersistence(persistence)
		if err := fresh.LoadPersistedSessions(); err != nil {
			t.Fatalf("LoadPersistedSessions failed: %v", err)
		}
		if fresh.Count() != 2 {
			t.Errorf("Expected 2 matches, got %d", fresh.Count())
		}
	})

	t.Run("cleanup keeps files", func(t *testing.T) {
		for _, s := range manager.List() {
			s.LastAccessedAt = time.Now().Add(-time.Hour)
		}
		removed := manager.CleanupExpiredSessions(time.Minute)
		if removed != 2 {
			t.Errorf("Expected 2 removed from memory, got %d", removed)
		}
		if _, err := manager.Get("auto2"); err != nil {
			t.Errorf("Expected reload from disk, got %v", err)
		}
	})

	t.Run("save all", func(t *testing.T) {
		if err := manager.SaveAllSessions(); err != nil {
			t.Errorf("SaveAllSessions failed: %v", err)
		}
	})

	t.Run("delete removes file", func(t *testing.T) {
		if err := manager.Delete("auto1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if persistence.Exists("auto1") {
			t.Error("Expected persisted file removed")
		}
		if _, err := manager.Get("auto1"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManagerResumesControllers(t *testing.T) {
	persistence, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	manager := NewManagerWithPersistence(persistence)

	spec := service.MatchSpec{
		Player1: service.PlayerSpec{Strategy: "scripted", Options: strategy.Options{
			Script: []engine.Action{engine.RotateLeftQuarter, engine.RotateLeftQuarter, engine.RotateLeftQuarter},
		}},
		Player2: service.PlayerSpec{Strategy: "random", Options: strategy.Options{Seed: 11}},
	}
	resumed, err := manager.Create("resume", createTestBoard(), spec, engine.DefaultRules())
	if err != nil {
		t.Fatalf("Failed to create match: %v", err)
	}
	reference, err := NewManager().Create("reference", createTestBoard(), spec, engine.DefaultRules())
	if err != nil {
		t.Fatalf("Failed to create match: %v", err)
	}

	resumed.Engine.Step()
	reference.Engine.Step()
	if err := manager.Save("resume"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := manager.DeleteFromMemory("resume"); err != nil {
		t.Fatalf("DeleteFromMemory failed: %v", err)
	}

	resumed, err = manager.Get("resume")
	if err != nil {
		t.Fatalf("Failed to reload match: %v", err)
	}
	for i := 0; i < 3; i++ {
		resumed.Engine.Step()
		reference.Engine.Step()
	}

	got, want := resumed.Engine.State(), reference.Engine.State()
	if got.Tank(1).Facing != want.Tank(1).Facing {
		t.Errorf("Script restarted after reload: facing %s, want %s", got.Tank(1).Facing, want.Tank(1).Facing)
	}
	for turn := range want.History {
		for i, entry := range want.History[turn].Entries {
			if g := got.History[turn].Entries[i]; g.TankID != entry.TankID || g.Action != entry.Action {
				t.Errorf("Turn %d entry %d: got %s, want %s", turn+1, i, g, entry)
			}
		}
	}
}

func TestFilePersistenceRejectsBadControllerState(t *testing.T) {
	dir := t.TempDir()
	persistence, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	session, err := NewManager().Create("bad1", createTestBoard(), testSpec(), engine.DefaultRules())
	if err != nil {
		t.Fatalf("Failed to create match: %v", err)
	}
	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	path := filepath.Join(dir, "bad1.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var data PersistedSessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatal(err)
	}
	data.Player1 = service.PlayerSpec{Strategy: "idle"}
	data.Player1State = []byte{1}
	raw, _ = json.Marshal(data)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := persistence.Load("bad1"); err == nil {
		t.Error("Expected error restoring state into a stateless controller")
	}
}
