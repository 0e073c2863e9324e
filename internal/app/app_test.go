package app

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleister1102/imgsync/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.GlobalConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewDefaultGlobalConfig()
	cfg.SFTP.Host = "127.0.0.1"
	cfg.SFTP.Username = "uploader"
	cfg.SFTP.Password = "secret"
	cfg.SFTP.LocalPath = filepath.Join(dir, "images")
	cfg.SFTP.RemotePath = "/var/www/images"
	cfg.Registry.WorkerURL = "https://short.example.com"
	cfg.Registry.WorkerPSK = "psk"
	cfg.Discord.Webhook = "https://discord.example.com/api/webhooks/1/token"
	cfg.Discord.IDsFile = filepath.Join(dir, "webhook_ids.json")
	cfg.History.Enabled = true
	cfg.History.DBPath = filepath.Join(dir, "history.db")
	cfg.Status.Listen = "127.0.0.1:9464"
	require.NoError(t, os.Mkdir(cfg.SFTP.LocalPath, 0o755))
	require.NoError(t, config.ValidateConfig(cfg))

	cfg.Status.Listen = "127.0.0.1:0"
	return cfg
}

func TestNew_AssemblesEngine(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 1, a.dispatcher.Len())
	assert.NotNil(t, a.journal)
	assert.NotNil(t, a.status)
	assert.False(t, a.session.State().Connected())

	snap := a.snapshot()
	assert.Zero(t, snap.Processed)
	assert.False(t, snap.Connected)

	require.NoError(t, a.Close())
	_, err = os.Stat(cfg.History.DBPath)
	assert.NoError(t, err)
}

func TestNew_MissingLocalPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.SFTP.LocalPath = filepath.Join(t.TempDir(), "missing")

	_, err := New(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Discord.Webhook = ""

	a, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.status.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + a.status.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
