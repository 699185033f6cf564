package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"p9e.in/requisition/models"
)

// GormStateRepository keeps the state in a single database row.
type GormStateRepository struct {
	db *gorm.DB
}

// NewGormStateRepository creates a repository over an open database.
func NewGormStateRepository(db *gorm.DB) *GormStateRepository {
	return &GormStateRepository{db: db}
}

var _ StateRepository = (*GormStateRepository)(nil)

func (r *GormStateRepository) Load(ctx context.Context) (models.PersistedState, error) {
	var rec models.StateRecord
	err := r.db.WithContext(ctx).First(&rec, models.StateRecordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.PersistedState{}, nil
	}
	if err != nil {
		return models.PersistedState{}, fmt.Errorf("load state: %w", err)
	}
	if rec.SchemaVersion != models.StateSchemaVersion {
		return models.PersistedState{}, nil
	}

	state := models.PersistedState{
		FileName:     rec.FileName,
		LastModified: rec.LastModified,
	}
	if len(rec.Lines) > 0 {
		if err := json.Unmarshal(rec.Lines, &state.Lines); err != nil {
			return models.PersistedState{}, fmt.Errorf("decode requisition lines: %w", err)
		}
	}
	if len(rec.Master) > 0 {
		if err := json.Unmarshal(rec.Master, &state.Master); err != nil {
			return models.PersistedState{}, fmt.Errorf("decode master data: %w", err)
		}
	}
	return state, nil
}

func (r *GormStateRepository) Save(ctx context.Context, state models.PersistedState) error {
	lines, err := marshalSlice(state.Lines)
	if err != nil {
		return fmt.Errorf("encode requisition lines: %w", err)
	}
	master, err := marshalSlice(state.Master)
	if err != nil {
		return fmt.Errorf("encode master data: %w", err)
	}

	rec := models.StateRecord{
		ID:            models.StateRecordID,
		SchemaVersion: models.StateSchemaVersion,
		Lines:         lines,
		Master:        master,
		FileName:      state.FileName,
		LastModified:  state.LastModified,
	}
	if err := r.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// GormSettingsRepository stores settings as key/value rows.
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a repository over an open database.
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

var _ SettingsRepository = (*GormSettingsRepository)(nil)

func (r *GormSettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var s models.AppSetting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return s.Value, true, nil
}

func (r *GormSettingsRepository) Set(ctx context.Context, key, value string) error {
	s := models.AppSetting{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&s).Error
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (r *GormSettingsRepository) All(ctx context.Context) (map[string]string, error) {
	var rows []models.AppSetting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, s := range rows {
		out[s.Key] = s.Value
	}
	return out, nil
}

func marshalSlice[T any](items []T) (datatypes.JSON, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
