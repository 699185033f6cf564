package models

import "time"

// Setting keys kept outside the main state record.
const (
	SettingSyncEnabled  = "syncEnabled"
	SettingLastSyncTime = "lastSyncTime"
	SettingDarkMode     = "darkMode"
)

// AppSetting is a simple persisted key/value toggle.
type AppSetting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName pins the table name used by the migrations.
func (AppSetting) TableName() string {
	return "app_settings"
}
