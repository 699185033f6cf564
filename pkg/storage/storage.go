// Package storage keeps the single persisted state record and the key/value
// settings that live beside it.
package storage

import (
	"context"

	"p9e.in/requisition/models"
)

// StateRepository loads and overwrites the one state record.
type StateRepository interface {
	// Load returns the stored state, or an empty state when none exists.
	Load(ctx context.Context) (models.PersistedState, error)
	// Save replaces the stored state wholesale.
	Save(ctx context.Context, state models.PersistedState) error
}

// SettingsRepository persists simple toggles outside the state record.
type SettingsRepository interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}
