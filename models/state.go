package models

import (
	"time"

	"gorm.io/datatypes"
)

// StateSchemaVersion is bumped whenever the persisted layout changes; stores
// holding an older version start empty.
const StateSchemaVersion = 3

// StateRecordID is the single slot the state is kept under.
const StateRecordID = 1

// PersistedState is everything the tool keeps between sessions.
type PersistedState struct {
	Lines        []RequisitionLine `json:"data"`
	Master       []MasterRecord    `json:"master"`
	FileName     string            `json:"fileName"`
	LastModified JSONTime          `json:"lastModified"`
}

// Clone returns a deep copy so callers can hold a snapshot outside the store lock.
func (s PersistedState) Clone() PersistedState {
	c := PersistedState{
		FileName:     s.FileName,
		LastModified: s.LastModified,
		Master:       append([]MasterRecord(nil), s.Master...),
	}
	if s.Lines != nil {
		c.Lines = make([]RequisitionLine, len(s.Lines))
		for i, l := range s.Lines {
			c.Lines[i] = l.Clone()
		}
	}
	return c
}

// StateRecord is the database row backing PersistedState.
type StateRecord struct {
	ID            uint           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	SchemaVersion int            `gorm:"not null;default:3" json:"schemaVersion"`
	Lines         datatypes.JSON `gorm:"type:jsonb;not null" json:"data"`
	Master        datatypes.JSON `gorm:"type:jsonb;not null" json:"master"`
	FileName      string         `gorm:"column:file_name" json:"fileName"`
	LastModified  JSONTime       `gorm:"column:last_modified" json:"lastModified"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName pins the table name used by the migrations.
func (StateRecord) TableName() string {
	return "requisition_states"
}
