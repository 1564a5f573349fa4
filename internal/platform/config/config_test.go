// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/cardbinder/internal/platform/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, config.BackendSQLite, cfg.CacheBackend)
	assert.Equal(t, config.BackendRedis, cfg.StateBackend)
	assert.Equal(t, 6, cfg.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.PersistInterval)
	assert.Equal(t, 8*time.Second, cfg.ImageFetchTimeout)
	assert.Empty(t, cfg.Sets)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.DatasetIsLocal())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SETS", "OP01,ST01")
	t.Setenv("DATASET_ORIGIN", "file:///srv/cardbinder")
	t.Setenv("STATE_BACKEND", "memory")
	t.Setenv("EXTRA_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"OP01", "ST01"}, cfg.Sets)
	assert.True(t, cfg.DatasetIsLocal())
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"postgres without dsn", "CACHE_BACKEND", "postgres"},
		{"unknown cache backend", "CACHE_BACKEND", "s3"},
		{"unknown state backend", "STATE_BACKEND", "etcd"},
		{"relative origin", "APP_ORIGIN", "localhost"},
		{"zero batch", "BATCH_SIZE", "0"},
		{"zero persist interval", "PERSIST_INTERVAL", "0s"},
		{"malformed duration", "SWEEP_INTERVAL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
