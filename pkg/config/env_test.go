package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_SMTP_HOST", "smtp.example.edu")
	t.Setenv("TEST_SMTP_PORT", "2525")
	t.Setenv("TEST_SMTP_SSL", "true")
	t.Setenv("TEST_SMTP_TIMEOUT", "15s")
	t.Setenv("TEST_SMTP_RATE", "0.5")

	assert.Equal(t, "smtp.example.edu", GetEnvString("TEST_SMTP_HOST", "localhost"))
	assert.Equal(t, 2525, GetEnvInt("TEST_SMTP_PORT", 587))
	assert.True(t, GetEnvBool("TEST_SMTP_SSL", false))
	assert.Equal(t, 15*time.Second, GetEnvDuration("TEST_SMTP_TIMEOUT", 30*time.Second))
	assert.Equal(t, 0.5, GetEnvFloat("TEST_SMTP_RATE", 2))
}

func TestGetEnv_Defaults(t *testing.T) {
	assert.Equal(t, "localhost", GetEnvString("TEST_UNSET_HOST", "localhost"))
	assert.Equal(t, 587, GetEnvInt("TEST_UNSET_PORT", 587))
	assert.False(t, GetEnvBool("TEST_UNSET_SSL", false))
	assert.Equal(t, 30*time.Second, GetEnvDuration("TEST_UNSET_TIMEOUT", 30*time.Second))
	assert.Equal(t, 2.0, GetEnvFloat("TEST_UNSET_RATE", 2))
}

func TestGetEnv_InvalidFallsBack(t *testing.T) {
	t.Setenv("TEST_SMTP_PORT", "smtp")
	t.Setenv("TEST_SMTP_SSL", "maybe")
	t.Setenv("TEST_SMTP_TIMEOUT", "soon")
	t.Setenv("TEST_SMTP_RATE", "fast")

	assert.Equal(t, 587, GetEnvInt("TEST_SMTP_PORT", 587))
	assert.True(t, GetEnvBool("TEST_SMTP_SSL", true))
	assert.Equal(t, 30*time.Second, GetEnvDuration("TEST_SMTP_TIMEOUT", 30*time.Second))
	assert.Equal(t, 2.0, GetEnvFloat("TEST_SMTP_RATE", 2))
}
