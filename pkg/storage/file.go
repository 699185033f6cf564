package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"p9e.in/requisition/models"
)

type stateEnvelope struct {
	ID      int                   `json:"id"`
	Version int                   `json:"version"`
	State   models.PersistedState `json:"state"`
}

// FileStateRepository keeps the state as a JSON document on local disk. A
// document written under another schema version is ignored.
type FileStateRepository struct {
	mu   sync.Mutex
	path string
}

// NewFileStateRepository creates a repository writing to path.
func NewFileStateRepository(path string) *FileStateRepository {
	return &FileStateRepository{path: path}
}

var _ StateRepository = (*FileStateRepository)(nil)

func (r *FileStateRepository) Load(ctx context.Context) (models.PersistedState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.PersistedState{}, nil
	}
	if err != nil {
		return models.PersistedState{}, fmt.Errorf("read state file: %w", err)
	}

	var env stateEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return models.PersistedState{}, fmt.Errorf("decode state file %s: %w", r.path, err)
	}
	if env.Version != models.StateSchemaVersion {
		return models.PersistedState{}, nil
	}
	return env.State, nil
}

func (r *FileStateRepository) Save(ctx context.Context, state models.PersistedState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	env := stateEnvelope{ID: models.StateRecordID, Version: models.StateSchemaVersion, State: state}
	return writeJSON(r.path, env)
}

// FileSettingsRepository keeps settings as a flat JSON object on disk.
type FileSettingsRepository struct {
	mu   sync.Mutex
	path string
}

// NewFileSettingsRepository creates a repository writing to path.
func NewFileSettingsRepository(path string) *FileSettingsRepository {
	return &FileSettingsRepository{path: path}
}

var _ SettingsRepository = (*FileSettingsRepository)(nil)

func (r *FileSettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (r *FileSettingsRepository) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.read()
	if err != nil {
		return err
	}
	values[key] = value
	return writeJSON(r.path, values)
}

func (r *FileSettingsRepository) All(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *FileSettingsRepository) read() (map[string]string, error) {
	values := make(map[string]string)
	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	if err := json.Unmarshal(b, &values); err != nil {
		return nil, fmt.Errorf("decode settings file %s: %w", r.path, err)
	}
	return values, nil
}

// writeJSON replaces path atomically so a crash never leaves half a document.
func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
