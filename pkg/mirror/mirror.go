// Package mirror pushes and pulls the whole state blob to a remote document
// store. The mirror is best effort: local state is always written first.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"p9e.in/requisition/models"
)

var (
	// ErrNoBackup is returned by Pull when the remote holds nothing to restore.
	ErrNoBackup = errors.New("no backup found on the remote mirror")
	// ErrPushInFlight is returned when a push is already running; the new
	// push is dropped, not queued.
	ErrPushInFlight = errors.New("a mirror push is already in progress")
)

// SyncError wraps a failed exchange with the remote endpoint.
type SyncError struct {
	Op     string
	Status int
	Err    error
}

func (e *SyncError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("mirror %s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("mirror %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Backend moves raw blobs to and from the remote store.
type Backend interface {
	Push(ctx context.Context, blob []byte) error
	Pull(ctx context.Context) ([]byte, error)
	// Describe names the remote location for status output.
	Describe() string
}

// Mirror serializes state for a backend and guards against overlapping pushes.
type Mirror struct {
	backend  Backend
	device   string
	inFlight atomic.Bool
}

// New creates a mirror over backend. device tags pushed payloads.
func New(backend Backend, device string) *Mirror {
	return &Mirror{backend: backend, device: device}
}

// Describe names the remote location.
func (m *Mirror) Describe() string {
	return m.backend.Describe()
}

// Push sends the full state. At most one push runs at a time.
func (m *Mirror) Push(ctx context.Context, state models.PersistedState) error {
	if !m.inFlight.CompareAndSwap(false, true) {
		return ErrPushInFlight
	}
	defer m.inFlight.Store(false)

	payload := models.MirrorPayload{
		RequisitionRows:  state.Lines,
		MasterData:       state.Master,
		UploadedFileName: state.FileName,
		LastModified:     state.LastModified,
		Device:           m.device,
	}
	if payload.RequisitionRows == nil {
		payload.RequisitionRows = []models.RequisitionLine{}
	}
	if payload.MasterData == nil {
		payload.MasterData = []models.MasterRecord{}
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		return &SyncError{Op: "push", Err: err}
	}
	return m.backend.Push(ctx, blob)
}

// Pull fetches and decodes the last pushed state.
func (m *Mirror) Pull(ctx context.Context) (models.PersistedState, error) {
	blob, err := m.backend.Pull(ctx)
	if err != nil {
		return models.PersistedState{}, err
	}

	// json.Unmarshal accepts a bare null into a struct, so insist on an object.
	if trimmed := bytes.TrimSpace(blob); len(trimmed) == 0 || trimmed[0] != '{' {
		return models.PersistedState{}, &SyncError{Op: "restore", Err: errors.New("malformed backup: not a JSON object")}
	}

	var payload models.MirrorPayload
	if err := json.Unmarshal(blob, &payload); err != nil {
		return models.PersistedState{}, &SyncError{Op: "restore", Err: fmt.Errorf("malformed backup: %w", err)}
	}

	return models.PersistedState{
		Lines:        payload.RequisitionRows,
		Master:       payload.MasterData,
		FileName:     payload.UploadedFileName,
		LastModified: payload.LastModified,
	}, nil
}
