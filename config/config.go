package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Settings is the process configuration, read from the environment.
type Settings struct {
	Port        string
	DSN         string
	StateFile   string
	PageSize    int
	MirrorURL   string
	GCSBucket   string
	GCSObject   string
	MirrorWait  time.Duration
	DeviceTag   string
	APISecret   string
	UploadMaxMB int64
}

// Load reads .env when present, then the environment.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	s := Settings{
		Port:      getenv("PORT", "8080"),
		DSN:       os.Getenv("DB_DSN"),
		StateFile: getenv("STATE_FILE", "./data/requisition.json"),
		MirrorURL: os.Getenv("MIRROR_URL"),
		GCSBucket: os.Getenv("MIRROR_GCS_BUCKET"),
		GCSObject: getenv("MIRROR_GCS_OBJECT", "requisition-state.json"),
		DeviceTag: os.Getenv("DEVICE_TAG"),
		APISecret: os.Getenv("API_SECRET"),
	}

	var err error
	if s.PageSize, err = strconv.Atoi(getenv("PAGE_SIZE", "8")); err != nil || s.PageSize < 1 {
		return Settings{}, fmt.Errorf("invalid PAGE_SIZE %q", os.Getenv("PAGE_SIZE"))
	}
	if s.MirrorWait, err = time.ParseDuration(getenv("MIRROR_TIMEOUT", "15s")); err != nil {
		return Settings{}, fmt.Errorf("invalid MIRROR_TIMEOUT: %w", err)
	}
	if s.UploadMaxMB, err = strconv.ParseInt(getenv("UPLOAD_MAX_MB", "50"), 10, 64); err != nil || s.UploadMaxMB < 1 {
		return Settings{}, fmt.Errorf("invalid UPLOAD_MAX_MB %q", os.Getenv("UPLOAD_MAX_MB"))
	}
	if s.DeviceTag == "" {
		if host, err := os.Hostname(); err == nil {
			s.DeviceTag = host
		}
	}
	return s, nil
}

// UsesDatabase reports whether state lives in postgres rather than a file.
func (s Settings) UsesDatabase() bool {
	return s.DSN != ""
}

// UploadLimit is the maximum accepted upload size in bytes.
func (s Settings) UploadLimit() int64 {
	return s.UploadMaxMB << 20
}

// Connect opens the database and runs migrations.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := Migrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Println("✅ Database connected and migrated")
	return db, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
