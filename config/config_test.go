package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DSN", "STATE_FILE", "PAGE_SIZE", "MIRROR_URL", "MIRROR_GCS_BUCKET",
		"MIRROR_GCS_OBJECT", "MIRROR_TIMEOUT", "API_SECRET", "UPLOAD_MAX_MB"} {
		t.Setenv(k, "")
	}
	t.Setenv("DEVICE_TAG", "bench")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", s.Port)
	assert.False(t, s.UsesDatabase())
	assert.Equal(t, "./data/requisition.json", s.StateFile)
	assert.Equal(t, 8, s.PageSize)
	assert.Equal(t, "requisition-state.json", s.GCSObject)
	assert.Equal(t, 15*time.Second, s.MirrorWait)
	assert.Equal(t, "bench", s.DeviceTag)
	assert.Equal(t, int64(50<<20), s.UploadLimit())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DSN", "host=localhost dbname=req")
	t.Setenv("PAGE_SIZE", "20")
	t.Setenv("MIRROR_TIMEOUT", "2s")
	t.Setenv("UPLOAD_MAX_MB", "5")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", s.Port)
	assert.True(t, s.UsesDatabase())
	assert.Equal(t, 20, s.PageSize)
	assert.Equal(t, 2*time.Second, s.MirrorWait)
	assert.Equal(t, int64(5<<20), s.UploadLimit())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PAGE_SIZE", "0")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PAGE_SIZE", "8")
	t.Setenv("MIRROR_TIMEOUT", "soon")
	_, err = Load()
	assert.Error(t, err)
}
