package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "course_registration", cfg.Database.Name)
	assert.Zero(t, cfg.Pending.DefaultTTL)
	assert.Equal(t, 200, cfg.Expiry.BatchSize)
	assert.Equal(t, 4, cfg.Expiry.Workers)
	assert.Equal(t, time.Second, cfg.Expiry.RetryDelay)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("PENDING_DEFAULT_TTL", "72h")
	v.Set("EXPIRY_RETRY_DELAY", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := fromViper(v)
	assert.Equal(t, 72*time.Hour, cfg.Pending.DefaultTTL)
	assert.Equal(t, time.Second, cfg.Expiry.RetryDelay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
