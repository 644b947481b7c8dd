package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STRIPE_SECRET_KEY", "ELASTICSEARCH_URL", "ADMIN_EMAILS", "CAPTURE_WINDOW", "BOOKING_CURRENCY"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, 48*time.Hour, cfg.Jobs.CaptureWindow)
	assert.Equal(t, time.Hour, cfg.Jobs.AbandonTTL)
	assert.Empty(t, cfg.Payment.SecretKey)
	assert.False(t, cfg.Elasticsearch.Enabled())
	assert.Equal(t, "classes", cfg.Elasticsearch.Index)
	assert.Nil(t, cfg.Auth.AdminEmails)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_1")
	t.Setenv("BOOKING_CURRENCY", "EUR")
	t.Setenv("ADMIN_EMAILS", "chef@cocinarte.com, owner@cocinarte.com,,")
	t.Setenv("CAPTURE_WINDOW", "72h")
	t.Setenv("ABANDON_TTL", "not-a-duration")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/cocinarte")
	t.Setenv("ELASTICSEARCH_URL", "http://es:9200")

	cfg := Load()

	assert.Equal(t, "sk_test_1", cfg.Payment.SecretKey)
	assert.Equal(t, "eur", cfg.Currency)
	assert.Equal(t, []string{"chef@cocinarte.com", "owner@cocinarte.com"}, cfg.Auth.AdminEmails)
	assert.Equal(t, 72*time.Hour, cfg.Jobs.CaptureWindow)
	assert.Equal(t, time.Hour, cfg.Jobs.AbandonTTL)
	assert.Equal(t, "postgres://u:p@db:5432/cocinarte", cfg.Database.DSN())
	assert.True(t, cfg.Elasticsearch.Enabled())
}
