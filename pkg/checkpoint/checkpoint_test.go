package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
)

func itemID(v int64) *int64 { return &v }

func TestManager(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "migration.checkpoint.json")

	t.Run("LoadMissingReturnsDefaults", func(t *testing.T) {
		mgr, err := NewManager(path, 5)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, found := mgr.Load()
		if found {
			t.Error("Expected found=false for missing checkpoint")
		}
		if cp.LastPage != 5 {
			t.Errorf("Expected default last page 5, got %d", cp.LastPage)
		}
		if cp.LastItemID != nil {
			t.Errorf("Expected nil item id, got %d", *cp.LastItemID)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		mgr, err := NewManager(path, 1)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		if err := mgr.Save(3, itemID(42)); err != nil {
			t.Fatalf("Failed to save checkpoint: %v", err)
		}

		cp, found := mgr.Load()
		if !found {
			t.Fatal("Expected checkpoint to be found")
		}
		if cp.LastPage != 3 {
			t.Errorf("Expected last page 3, got %d", cp.LastPage)
		}
		if cp.LastItemID == nil || *cp.LastItemID != 42 {
			t.Errorf("Expected last item id 42, got %v", cp.LastItemID)
		}
	})

	t.Run("SavePageCompletionClearsItemID", func(t *testing.T) {
		mgr, err := NewManager(path, 1)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		if err := mgr.Save(3, itemID(42)); err != nil {
			t.Fatalf("Failed to save checkpoint: %v", err)
		}
		if err := mgr.Save(3, nil); err != nil {
			t.Fatalf("Failed to save page completion: %v", err)
		}

		cp, found := mgr.Load()
		if !found {
			t.Fatal("Expected checkpoint to be found")
		}
		if cp.LastItemID != nil {
			t.Errorf("Expected nil item id after page completion, got %d", *cp.LastItemID)
		}
	})

	t.Run("CorruptFileFallsBackToDefaults", func(t *testing.T) {
		corruptPath := filepath.Join(tempDir, "corrupt.json")
		if err := os.WriteFile(corruptPath, []byte("{not json"), 0644); err != nil {
			t.Fatalf("Failed to write corrupt file: %v", err)
		}

		mgr, err := NewManager(corruptPath, 7)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cp, found := mgr.Load()
		if found {
			t.Error("Expected found=false for corrupt checkpoint")
		}
		if cp.LastPage != 7 {
			t.Errorf("Expected default last page 7, got %d", cp.LastPage)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mgr, err := NewManager(path, 1)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		if err := mgr.Save(1, nil); err != nil {
			t.Fatalf("Failed to save checkpoint: %v", err)
		}
		if !mgr.Exists() {
			t.Error("Expected checkpoint to exist")
		}

		if err := mgr.Delete(); err != nil {
			t.Fatalf("Failed to delete checkpoint: %v", err)
		}
		if mgr.Exists() {
			t.Error("Expected checkpoint to not exist after deletion")
		}

		// Deleting a missing checkpoint is not an error
		if err := mgr.Delete(); err != nil {
			t.Errorf("Deleting missing checkpoint should not fail: %v", err)
		}
	})

	t.Run("AtomicWrite", func(t *testing.T) {
		mgr, err := NewManager(path, 1)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		done := make(chan bool, 10)
		for i := 0; i < 10; i++ {
			go func(n int) {
				mgr.Save(n, nil)
				done <- true
			}(i)
		}
		for i := 0; i < 10; i++ {
			<-done
		}

		// Whatever save won, the file must still parse
		cp, found := mgr.Load()
		if !found || cp == nil {
			t.Fatal("Checkpoint corrupted after concurrent saves")
		}
	})
}

func TestResumePoint(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "cp.json")

	mgr, err := NewManager(path, 5)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	// No checkpoint: resume at the configured start page without a filter
	page, lastID := mgr.ResumePoint()
	if page != 5 || lastID != nil {
		t.Errorf("Expected (5, nil), got (%d, %v)", page, lastID)
	}

	// Mid-page checkpoint: resume on the same page with the filter active
	if err := mgr.Save(8, itemID(100)); err != nil {
		t.Fatalf("Failed to save checkpoint: %v", err)
	}
	page, lastID = mgr.ResumePoint()
	if page != 8 {
		t.Errorf("Expected resume page 8, got %d", page)
	}
	if lastID == nil || *lastID != 100 {
		t.Errorf("Expected last item id 100, got %v", lastID)
	}

	// Page completion checkpoint: resume at the next page
	if err := mgr.Save(8, nil); err != nil {
		t.Fatalf("Failed to save checkpoint: %v", err)
	}
	page, lastID = mgr.ResumePoint()
	if page != 9 || lastID != nil {
		t.Errorf("Expected (9, nil), got (%d, %v)", page, lastID)
	}
}
