package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "authorpanel.yaml")
	require.NoError(t, os.WriteFile(file, []byte("environment: development\n"), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "https://atom-game.ir", cfg.API.BaseURL)
	assert.Equal(t, "/api/token/refresh/", cfg.API.RefreshPath)
	assert.Equal(t, 30*time.Second, cfg.Session.ExpirySkew)
	assert.True(t, cfg.Session.PreflightRefresh)
	assert.Equal(t, "file", cfg.Session.Store)
	assert.Equal(t, 10, cfg.Panel.PageSize)
	assert.Equal(t, 200, cfg.Panel.FetchPageSize)
	assert.Equal(t, 10, cfg.Panel.MaxPages)
	assert.Equal(t, 6, cfg.Panel.Workers)
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "authorpanel.yaml")
	content := `
api:
  baseurl: http://localhost:8000
  timeout: 5s
session:
  store: memory
  expiryskew: 1m
panel:
  workers: 3
stub:
  allowcorsorigins: http://a.test,http://b.test
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, time.Minute, cfg.Session.ExpirySkew)
	assert.Equal(t, 3, cfg.Panel.Workers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Stub.AllowCORSOrigins)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "authorpanel.yaml")
	require.NoError(t, os.WriteFile(file, []byte("session:\n  store: etcd\n"), 0o600))

	_, err := Load(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.store")
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "authorpanel.yaml")
	require.NoError(t, os.WriteFile(file, []byte("api: [unterminated\n"), 0o600))

	_, err := Load(file)
	require.Error(t, err)
}
