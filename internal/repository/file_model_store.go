package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"EsgPulse/internal/domain/models"
	applogger "EsgPulse/pkg/logger"
)

// FileModelStore persists model snapshots as JSON files, one per model id,
// under a configured directory. Writes go through a temp file and rename
// so a crashed save never leaves a truncated snapshot behind.
type FileModelStore struct {
	dir string
	l   *applogger.Logger
}

func NewFileModelStore(dir string) (*FileModelStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty model directory", models.ErrPersistenceFailure)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create model dir: %v", models.ErrPersistenceFailure, err)
	}
	return &FileModelStore{dir: dir}, nil
}

// SetLogger injects a structured logger.
func (s *FileModelStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *FileModelStore) Save(_ context.Context, modelID string, snap *models.ModelSnapshot) error {
	if snap == nil || snap.Scaler == nil {
		return fmt.Errorf("%w: snapshot for %s is missing its scaler", models.ErrPersistenceFailure, modelID)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal snapshot: %v", models.ErrPersistenceFailure, err)
	}

	path := s.path(modelID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write snapshot: %v", models.ErrPersistenceFailure, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: commit snapshot: %v", models.ErrPersistenceFailure, err)
	}
	if s.l != nil {
		s.l.Debug("model snapshot saved",
			applogger.String("model", modelID),
			applogger.String("path", path))
	}
	return nil
}

func (s *FileModelStore) Load(_ context.Context, modelID string) (*models.ModelSnapshot, error) {
	data, err := os.ReadFile(s.path(modelID))
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot for %s: %v", models.ErrPersistenceFailure, modelID, err)
	}
	var snap models.ModelSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot for %s: %v", models.ErrPersistenceFailure, modelID, err)
	}
	if snap.Scaler == nil {
		return nil, fmt.Errorf("%w: snapshot for %s has no scaler", models.ErrPersistenceFailure, modelID)
	}
	return &snap, nil
}

// path sanitizes the model id so ids never escape the store directory.
func (s *FileModelStore) path(modelID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, modelID)
	return filepath.Join(s.dir, safe+".json")
}
