package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"p9e.in/requisition/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "01062025_create_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.StateRecord{}, &models.AppSetting{})
			},
		},
		{
			// State schema 3 stores unit info on each line. Older rows cannot be
			// upgraded, so the table starts over.
			ID: "20062025_state_schema_v3",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.Migrator().DropTable(&models.StateRecord{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&models.StateRecord{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Where("schema_version = ?", models.StateSchemaVersion).Delete(&models.StateRecord{}).Error
			},
		},
	})
	return m.Migrate()
}
