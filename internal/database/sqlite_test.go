package database

import (
	"testing"

	"mm-go/internal/model"
)

// newTestDB creates a new in-memory catalog with the schema applied.
func newTestDB(t *testing.T) *SQLiteCatalog {
	t.Helper()

	db, err := NewSQLiteCatalog(":memory:")
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testModel builds a minimal valid model row.
func testModel(id string, kind model.Kind, name, path string) *model.Model {
	return &model.Model{
		ID:        id,
		Kind:      kind,
		Path:      path,
		Size:      1024,
		MTime:     1700000000,
		ScannedAt: 1700000100,
		Name:      model.TriField{Local: name, Legacy: name},
	}
}

func TestSQLiteCatalog_FindModelByID(t *testing.T) {
	t.Run("returns nil when model not found", func(t *testing.T) {
		db := newTestDB(t)

		m, err := db.FindModelByID("no-such-id")
		if err != nil {
			t.Fatalf("FindModelByID() error = %v", err)
		}
		if m != nil {
			t.Errorf("FindModelByID() = %v, want nil", m)
		}
	})

	t.Run("round-trips every field", func(t *testing.T) {
		db := newTestDB(t)

		in := &model.Model{
			ID:        "abc123",
			Kind:      model.KindLora,
			Path:      "/models/loras/x.safetensors",
			Size:      2048,
			MTime:     1700000000,
			ScannedAt: 1700000100,
			Hash:      "deadbeef",
			Name:      model.TriField{Remote: "Remote X", Local: "x", Legacy: "Remote X"},
			Trigger:   model.TriField{Remote: "rx", Local: "lx", Legacy: "rx"},
			Tags:      model.TriField{Remote: "a, b", Local: "c", Legacy: "a, b"},
			Remote: model.RemoteInfo{
				Version:   "v3",
				Type:      "LORA",
				BaseModel: "SDXL 1.0",
				Creator:   "someone",
				License:   "CreativeML",
				URL:       "https://example.com/7",
				CheckedAt: 1700000200,
			},
		}
		if err := db.UpsertModel(in); err != nil {
			t.Fatalf("UpsertModel() error = %v", err)
		}

		got, err := db.FindModelByID("abc123")
		if err != nil {
			t.Fatalf("FindModelByID() error = %v", err)
		}
		if got == nil {
			t.Fatal("FindModelByID() returned nil, want model")
		}
		if *got != *in {
			t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", got, in)
		}
	})

	t.Run("absent metadata stays empty", func(t *testing.T) {
		db := newTestDB(t)

		in := testModel("m1", model.KindCheckpoint, "bare", "/models/checkpoints/bare.ckpt")
		if err := db.UpsertModel(in); err != nil {
			t.Fatalf("UpsertModel() error = %v", err)
		}

		got, err := db.FindModelByID("m1")
		if err != nil {
			t.Fatalf("FindModelByID() error = %v", err)
		}
		if got.Hash != "" || got.Trigger.Local != "" || got.Remote.CheckedAt != 0 {
			t.Errorf("optional fields not empty: %+v", got)
		}

		// Empty optional strings are stored as NULL, not empty text.
		var n int
		err = db.db.QueryRow("SELECT COUNT(*) FROM mm_models WHERE id = 'm1' AND hash IS NULL AND trigger IS NULL").Scan(&n)
		if err != nil {
			t.Fatalf("counting NULL columns: %v", err)
		}
		if n != 1 {
			t.Error("optional columns stored as empty text instead of NULL")
		}
	})
}

func TestSQLiteCatalog_UpsertModel(t *testing.T) {
	t.Run("replaces an existing row", func(t *testing.T) {
		db := newTestDB(t)

		first := testModel("m1", model.KindCheckpoint, "one", "/models/checkpoints/a.ckpt")
		if err := db.UpsertModel(first); err != nil {
			t.Fatalf("first UpsertModel() error = %v", err)
		}

		second := testModel("m1", model.KindCheckpoint, "one-renamed", "/models/checkpoints/a.ckpt")
		second.Size = 4096
		if err := db.UpsertModel(second); err != nil {
			t.Fatalf("second UpsertModel() error = %v", err)
		}

		models, err := db.ListModels()
		if err != nil {
			t.Fatalf("ListModels() error = %v", err)
		}
		if len(models) != 1 {
			t.Fatalf("got %d rows, want 1", len(models))
		}
		if models[0].Name.Local != "one-renamed" || models[0].Size != 4096 {
			t.Errorf("row not replaced: %+v", models[0])
		}
	})
}

func TestSQLiteCatalog_SetModelLocalName(t *testing.T) {
	db := newTestDB(t)

	in := testModel("m1", model.KindCheckpoint, "one", "/models/checkpoints/a.ckpt")
	in.Name.Local = ""
	if err := db.UpsertModel(in); err != nil {
		t.Fatalf("UpsertModel() error = %v", err)
	}

	if err := db.SetModelLocalName("m1", "backfilled"); err != nil {
		t.Fatalf("SetModelLocalName() error = %v", err)
	}

	got, err := db.FindModelByID("m1")
	if err != nil {
		t.Fatalf("FindModelByID() error = %v", err)
	}
	if got.Name.Local != "backfilled" {
		t.Errorf("Name.Local = %q, want %q", got.Name.Local, "backfilled")
	}
	// The legacy name column is untouched.
	if got.Name.Legacy != "one" {
		t.Errorf("Name.Legacy = %q, want %q", got.Name.Legacy, "one")
	}
}

func TestSQLiteCatalog_ListModels(t *testing.T) {
	t.Run("orders by kind then name case-insensitively", func(t *testing.T) {
		db := newTestDB(t)

		rows := []*model.Model{
			testModel("m1", model.KindLora, "Zeta", "/models/loras/zeta.safetensors"),
			testModel("m2", model.KindCheckpoint, "beta", "/models/checkpoints/beta.ckpt"),
			testModel("m3", model.KindLora, "alpha", "/models/loras/alpha.safetensors"),
			testModel("m4", model.KindCheckpoint, "Alpha", "/models/checkpoints/alpha.ckpt"),
			testModel("m5", model.KindEmbedding, "mid", "/models/embeddings/mid.pt"),
		}
		for _, m := range rows {
			if err := db.UpsertModel(m); err != nil {
				t.Fatalf("UpsertModel(%s) error = %v", m.ID, err)
			}
		}

		models, err := db.ListModels()
		if err != nil {
			t.Fatalf("ListModels() error = %v", err)
		}

		want := []string{"m4", "m2", "m5", "m3", "m1"}
		if len(models) != len(want) {
			t.Fatalf("got %d rows, want %d", len(models), len(want))
		}
		for i, id := range want {
			if models[i].ID != id {
				t.Errorf("models[%d].ID = %s, want %s", i, models[i].ID, id)
			}
		}
	})

	t.Run("empty catalog lists nothing", func(t *testing.T) {
		db := newTestDB(t)

		models, err := db.ListModels()
		if err != nil {
			t.Fatalf("ListModels() error = %v", err)
		}
		if len(models) != 0 {
			t.Errorf("got %d rows, want 0", len(models))
		}
	})
}

func TestSQLiteCatalog_DeleteModelsNotIn(t *testing.T) {
	seed := func(t *testing.T, db *SQLiteCatalog) {
		t.Helper()
		for i, path := range []string{
			"/models/checkpoints/a.ckpt",
			"/models/checkpoints/b.ckpt",
			"/models/loras/c.safetensors",
		} {
			m := testModel(string(rune('1'+i)), model.KindCheckpoint, path, path)
			if err := db.UpsertModel(m); err != nil {
				t.Fatalf("UpsertModel() error = %v", err)
			}
		}
	}

	t.Run("deletes rows whose paths were not observed", func(t *testing.T) {
		db := newTestDB(t)
		seed(t, db)

		n, err := db.DeleteModelsNotIn([]string{
			"/models/checkpoints/a.ckpt",
			"/models/loras/c.safetensors",
		})
		if err != nil {
			t.Fatalf("DeleteModelsNotIn() error = %v", err)
		}
		if n != 1 {
			t.Errorf("deleted %d rows, want 1", n)
		}

		models, err := db.ListModels()
		if err != nil {
			t.Fatalf("ListModels() error = %v", err)
		}
		for _, m := range models {
			if m.Path == "/models/checkpoints/b.ckpt" {
				t.Error("unobserved row survived")
			}
		}
		if len(models) != 2 {
			t.Errorf("got %d rows, want 2", len(models))
		}
	})

	t.Run("empty observed set deletes everything", func(t *testing.T) {
		db := newTestDB(t)
		seed(t, db)

		n, err := db.DeleteModelsNotIn(nil)
		if err != nil {
			t.Fatalf("DeleteModelsNotIn() error = %v", err)
		}
		if n != 3 {
			t.Errorf("deleted %d rows, want 3", n)
		}

		empty, err := db.CatalogEmpty()
		if err != nil {
			t.Fatalf("CatalogEmpty() error = %v", err)
		}
		if !empty {
			t.Error("catalog not empty after deleting all")
		}
	})

	t.Run("observing every path deletes nothing", func(t *testing.T) {
		db := newTestDB(t)
		seed(t, db)

		n, err := db.DeleteModelsNotIn([]string{
			"/models/checkpoints/a.ckpt",
			"/models/checkpoints/b.ckpt",
			"/models/loras/c.safetensors",
		})
		if err != nil {
			t.Fatalf("DeleteModelsNotIn() error = %v", err)
		}
		if n != 0 {
			t.Errorf("deleted %d rows, want 0", n)
		}
	})
}

func TestSQLiteCatalog_SetModelHash(t *testing.T) {
	db := newTestDB(t)

	m := testModel("m1", model.KindCheckpoint, "one", "/models/checkpoints/a.ckpt")
	if err := db.UpsertModel(m); err != nil {
		t.Fatalf("UpsertModel() error = %v", err)
	}

	ok, err := db.SetModelHash("m1", "cafebabe")
	if err != nil {
		t.Fatalf("SetModelHash() error = %v", err)
	}
	if !ok {
		t.Error("SetModelHash() = false, want true for existing row")
	}

	got, err := db.FindModelByID("m1")
	if err != nil {
		t.Fatalf("FindModelByID() error = %v", err)
	}
	if got.Hash != "cafebabe" {
		t.Errorf("Hash = %q, want %q", got.Hash, "cafebabe")
	}

	ok, err = db.SetModelHash("no-such-id", "cafebabe")
	if err != nil {
		t.Fatalf("SetModelHash(unknown) error = %v", err)
	}
	if ok {
		t.Error("SetModelHash(unknown) = true, want false")
	}
}

func TestSQLiteCatalog_UpdateModelRemote(t *testing.T) {
	t.Run("writes remote and legacy columns only", func(t *testing.T) {
		db := newTestDB(t)

		m := testModel("m1", model.KindLora, "local", "/models/loras/a.safetensors")
		m.Trigger.Local = "local trigger"
		if err := db.UpsertModel(m); err != nil {
			t.Fatalf("UpsertModel() error = %v", err)
		}

		m.Name.Remote = "Remote Name"
		m.Name.Legacy = "Remote Name"
		m.Trigger.Remote = "remote trigger"
		m.Trigger.Legacy = "remote trigger"
		m.Remote = model.RemoteInfo{Version: "v1", CheckedAt: 1700000300}

		ok, err := db.UpdateModelRemote(m)
		if err != nil {
			t.Fatalf("UpdateModelRemote() error = %v", err)
		}
		if !ok {
			t.Fatal("UpdateModelRemote() = false, want true")
		}

		got, err := db.FindModelByID("m1")
		if err != nil {
			t.Fatalf("FindModelByID() error = %v", err)
		}
		if got.Name.Remote != "Remote Name" || got.Remote.Version != "v1" {
			t.Errorf("remote columns not written: %+v", got)
		}
		if got.Name.Legacy != "Remote Name" || got.Trigger.Legacy != "remote trigger" {
			t.Errorf("legacy columns not refreshed: %+v", got)
		}
		if got.Trigger.Local != "local trigger" {
			t.Errorf("Trigger.Local = %q, want untouched %q", got.Trigger.Local, "local trigger")
		}
		if got.Remote.CheckedAt != 1700000300 {
			t.Errorf("Remote.CheckedAt = %d, want 1700000300", got.Remote.CheckedAt)
		}
	})

	t.Run("reports no match for unknown id", func(t *testing.T) {
		db := newTestDB(t)

		m := testModel("ghost", model.KindLora, "x", "/models/loras/x.safetensors")
		ok, err := db.UpdateModelRemote(m)
		if err != nil {
			t.Fatalf("UpdateModelRemote() error = %v", err)
		}
		if ok {
			t.Error("UpdateModelRemote() = true, want false for unknown id")
		}
	})
}

func TestSQLiteCatalog_MarkRemoteChecked(t *testing.T) {
	db := newTestDB(t)

	m := testModel("m1", model.KindCheckpoint, "one", "/models/checkpoints/a.ckpt")
	if err := db.UpsertModel(m); err != nil {
		t.Fatalf("UpsertModel() error = %v", err)
	}

	ok, err := db.MarkRemoteChecked("m1", 1700000400)
	if err != nil {
		t.Fatalf("MarkRemoteChecked() error = %v", err)
	}
	if !ok {
		t.Error("MarkRemoteChecked() = false, want true")
	}

	got, err := db.FindModelByID("m1")
	if err != nil {
		t.Fatalf("FindModelByID() error = %v", err)
	}
	if got.Remote.CheckedAt != 1700000400 {
		t.Errorf("Remote.CheckedAt = %d, want 1700000400", got.Remote.CheckedAt)
	}
	if got.Name.Remote != "" {
		t.Errorf("Name.Remote = %q, want empty", got.Name.Remote)
	}

	ok, err = db.MarkRemoteChecked("no-such-id", 1700000400)
	if err != nil {
		t.Fatalf("MarkRemoteChecked(unknown) error = %v", err)
	}
	if ok {
		t.Error("MarkRemoteChecked(unknown) = true, want false")
	}
}

func TestSQLiteCatalog_CatalogEmptyAndClear(t *testing.T) {
	db := newTestDB(t)

	empty, err := db.CatalogEmpty()
	if err != nil {
		t.Fatalf("CatalogEmpty() error = %v", err)
	}
	if !empty {
		t.Error("fresh catalog not empty")
	}

	m := testModel("m1", model.KindCheckpoint, "one", "/models/checkpoints/a.ckpt")
	if err := db.UpsertModel(m); err != nil {
		t.Fatalf("UpsertModel() error = %v", err)
	}

	empty, err = db.CatalogEmpty()
	if err != nil {
		t.Fatalf("CatalogEmpty() error = %v", err)
	}
	if empty {
		t.Error("catalog empty after insert")
	}

	if err := db.ClearModels(); err != nil {
		t.Fatalf("ClearModels() error = %v", err)
	}

	empty, err = db.CatalogEmpty()
	if err != nil {
		t.Fatalf("CatalogEmpty() error = %v", err)
	}
	if !empty {
		t.Error("catalog not empty after clear")
	}
}

func TestSQLiteCatalog_Settings(t *testing.T) {
	t.Run("missing key reads as empty", func(t *testing.T) {
		db := newTestDB(t)

		v, err := db.GetSetting("never-set")
		if err != nil {
			t.Fatalf("GetSetting() error = %v", err)
		}
		if v != "" {
			t.Errorf("GetSetting() = %q, want empty", v)
		}
	})

	t.Run("put then get", func(t *testing.T) {
		db := newTestDB(t)

		if err := db.PutSetting("models_path", "/data/models"); err != nil {
			t.Fatalf("PutSetting() error = %v", err)
		}

		v, err := db.GetSetting("models_path")
		if err != nil {
			t.Fatalf("GetSetting() error = %v", err)
		}
		if v != "/data/models" {
			t.Errorf("GetSetting() = %q, want %q", v, "/data/models")
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		db := newTestDB(t)

		if err := db.PutSetting("models_path", "/old"); err != nil {
			t.Fatalf("first PutSetting() error = %v", err)
		}
		if err := db.PutSetting("models_path", "/new"); err != nil {
			t.Fatalf("second PutSetting() error = %v", err)
		}

		v, err := db.GetSetting("models_path")
		if err != nil {
			t.Fatalf("GetSetting() error = %v", err)
		}
		if v != "/new" {
			t.Errorf("GetSetting() = %q, want %q", v, "/new")
		}
	})
}
