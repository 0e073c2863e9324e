package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleister1102/imgsync/internal/config"
	"github.com/aleister1102/imgsync/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	cfg := config.NewDefaultWatchConfig()
	cfg.DebounceMs = 50
	cfg.MoveWindowMs = 200

	w, err := New(dir, cfg, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		cancel()
		require.NoError(t, w.Close())
	})
	return w
}

func nextEvent(t *testing.T, w *Watcher) models.FileEvent {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for file event")
		return models.FileEvent{}
	}
}

func TestWatcher_CreateIsCoalesced(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	path := filepath.Join(dir, "Cat.PNG")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))

	ev := nextEvent(t, w)
	assert.Equal(t, models.EventCreated, ev.Kind)
	assert.Equal(t, path, ev.SrcPath)
	assert.False(t, ev.IsDirectory)

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected extra event %s", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dog.jpg"), []byte("x"), 0o644))

	ev := nextEvent(t, w)
	assert.Equal(t, filepath.Join(dir, "dog.jpg"), ev.SrcPath)
}

func TestWatcher_RenameIsMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	dest := filepath.Join(dir, "b.png")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	w := startWatcher(t, dir)
	require.NoError(t, os.Rename(src, dest))

	ev := nextEvent(t, w)
	assert.Equal(t, models.EventMoved, ev.Kind)
	assert.Equal(t, src, ev.SrcPath)
	assert.Equal(t, dest, ev.DestPath)
}

func TestWatcher_RemoveAndMoveOut(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	removed := filepath.Join(dir, "old.gif")
	movedOut := filepath.Join(dir, "away.webp")
	require.NoError(t, os.WriteFile(removed, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(movedOut, []byte("x"), 0o644))

	w := startWatcher(t, dir)

	require.NoError(t, os.Remove(removed))
	ev := nextEvent(t, w)
	assert.Equal(t, models.FileEvent{Kind: models.EventDeleted, SrcPath: removed}, ev)

	require.NoError(t, os.Rename(movedOut, filepath.Join(outside, "away.webp")))
	ev = nextEvent(t, w)
	assert.Equal(t, models.FileEvent{Kind: models.EventDeleted, SrcPath: movedOut}, ev)
}

func TestWatcher_DirectoriesAreFlagged(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	sub := filepath.Join(dir, "albums")
	require.NoError(t, os.Mkdir(sub, 0o755))

	ev := nextEvent(t, w)
	assert.True(t, ev.IsDirectory)
	assert.Equal(t, sub, ev.SrcPath)
}

func TestWatcher_CloseClosesEvents(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, config.NewDefaultWatchConfig(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Events()
	assert.False(t, ok)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), config.NewDefaultWatchConfig(), zerolog.Nop())
	assert.Error(t, err)

	cfg := config.NewDefaultWatchConfig()
	cfg.Patterns = []string{"[.png"}
	_, err = New(t.TempDir(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWatcher_Matches(t *testing.T) {
	cfg := config.NewDefaultWatchConfig()
	w, err := New(t.TempDir(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer w.fsw.Close()

	assert.True(t, w.Matches("/x/photo.JPEG"))
	assert.True(t, w.Matches("icon.ico"))
	assert.False(t, w.Matches("notes.txt"))
	assert.False(t, w.Matches("archive.png.zip"))
}
