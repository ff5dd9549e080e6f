package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"catmigrate/pkg/logger"
)

// Checkpoint records the furthest confirmed processing point of a migration
// run. LastItemID nil after a page save means the whole page completed.
type Checkpoint struct {
	LastPage   int       `json:"last_page"`
	LastItemID *int64    `json:"last_item_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Manager handles checkpoint persistence. There is exactly one writer (the
// batch driver); the health responder only reads, and saves are atomic
// replace-on-rename so readers never observe a torn file.
type Manager struct {
	checkpointPath string
	startPage      int
	logger         logger.Logger
}

// NewManager creates a checkpoint manager. An empty path places the
// checkpoint in the platform data directory.
func NewManager(path string, startPage int) (*Manager, error) {
	if path == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		path = filepath.Join(dataDir, "migration.checkpoint.json")
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
	}

	return &Manager{
		checkpointPath: path,
		startPage:      startPage,
		logger:         logger.GetLogger(),
	}, nil
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Load reads the checkpoint. A missing, unreadable or corrupt file is never
// fatal: it yields the defaults (configured start page, no item id) and
// found=false.
func (m *Manager) Load() (*Checkpoint, bool) {
	defaults := &Checkpoint{LastPage: m.startPage}

	data, err := os.ReadFile(m.checkpointPath)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.WithError(err).Warn("Checkpoint unreadable, starting from defaults")
		}
		return defaults, false
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		m.logger.WithError(err).Warn("Checkpoint corrupt, starting from defaults")
		return defaults, false
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"last_page":    cp.LastPage,
		"last_item_id": itemIDField(cp.LastItemID),
		"updated_at":   cp.UpdatedAt,
	})

	return &cp, true
}

// Save persists the checkpoint durably before returning. The write goes to a
// temp file which is fsynced and renamed over the old checkpoint.
func (m *Manager) Save(page int, itemID *int64) error {
	cp := Checkpoint{
		LastPage:   page,
		LastItemID: itemID,
		UpdatedAt:  time.Now(),
	}

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"last_page":    page,
		"last_item_id": itemIDField(itemID),
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// ResumePoint computes where a run should continue. A checkpoint saved after
// page completion (nil item id) resumes at the next page; a mid-page
// checkpoint resumes on the same page with the item id filter active.
func (m *Manager) ResumePoint() (page int, lastItemID *int64) {
	cp, found := m.Load()
	if !found {
		return m.startPage, nil
	}
	if cp.LastItemID == nil {
		return cp.LastPage + 1, nil
	}
	return cp.LastPage, cp.LastItemID
}

func itemIDField(id *int64) interface{} {
	if id == nil {
		return "none"
	}
	return *id
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		// Use XDG_DATA_HOME if set, otherwise ~/.local/share
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "catmigrate")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "catmigrate")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "catmigrate")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "catmigrate")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
