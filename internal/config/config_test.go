package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OS_ENDPOINT", "https://search.example.com/")
	t.Setenv("OS_INDEX", "restaurants")
	t.Setenv("OS_ACCESS_KEY", "AKID")
	t.Setenv("OS_SECRET_KEY", "secret")
	t.Setenv("MAIL_FROM", "concierge@example.com")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "587")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	// Clear anything the ambient environment might set.
	for _, key := range []string{"REGION", "NUM_RESULTS", "QUEUE_STREAM", "ALLOWED_CUISINES", "VISIBILITY_TIMEOUT_SEC"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, 3, cfg.NumResults)
	assert.Equal(t, "concierge:requests", cfg.QueueStream)
	assert.Equal(t, "https://search.example.com", cfg.OSEndpoint, "trailing slash is stripped")
	assert.Equal(t, []string{"italian", "chinese", "mexican", "indian", "japanese"}, cfg.AllowedCuisines)
	assert.Equal(t, int64(30), int64(cfg.VisibilityTimeout.Seconds()))
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("OS_ENDPOINT", "")
	t.Setenv("MAIL_FROM", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OS_ENDPOINT")
	assert.Contains(t, err.Error(), "MAIL_FROM")
}

func TestLoadRejectsBadNumResults(t *testing.T) {
	setRequired(t)
	t.Setenv("NUM_RESULTS", "zero")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NUM_RESULTS")
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("NUM_RESULTS", "5")
	t.Setenv("ALLOWED_CUISINES", "Thai, korean")
	t.Setenv("VISIBILITY_TIMEOUT_SEC", "60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.NumResults)
	assert.Equal(t, []string{"thai", "korean"}, cfg.AllowedCuisines)
	assert.Equal(t, int64(60), int64(cfg.VisibilityTimeout.Seconds()))
}
