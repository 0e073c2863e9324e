package notifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	name    string
	err     error
	notify  []Message
	edits   []Message
	deletes []string
}

func (r *recordingBackend) Name() string { return r.name }

func (r *recordingBackend) Notify(_ context.Context, msg Message) (string, error) {
	r.notify = append(r.notify, msg)
	if r.err != nil {
		return "", r.err
	}
	return "id-" + msg.Shortcode, nil
}

func (r *recordingBackend) Edit(_ context.Context, msg Message) error {
	r.edits = append(r.edits, msg)
	return r.err
}

func (r *recordingBackend) Delete(_ context.Context, shortcode string) error {
	r.deletes = append(r.deletes, shortcode)
	return r.err
}

func TestDescription(t *testing.T) {
	got := Description("aB3dE5fG", "https://img.example.com/aB3dE5fG", "cat.png")
	assert.Equal(t, `Shortcode "aB3dE5fG" created for cat.png, and is now available at https://img.example.com/aB3dE5fG`, got)

	msg := NewMessage("aB3dE5fG", "https://img.example.com/aB3dE5fG", "cat.png")
	assert.Equal(t, got, msg.Description)
}

func TestDispatcher_FailingBackendDoesNotStopOthers(t *testing.T) {
	boom := errors.New("boom")
	failing := &recordingBackend{name: "failing", err: boom}
	ok := &recordingBackend{name: "ok"}

	d := NewDispatcher(zerolog.Nop())
	d.Register(failing)
	d.Register(ok)
	require.Equal(t, 2, d.Len())

	msg := NewMessage("aB3dE5fG", "https://img.example.com/aB3dE5fG", "cat.png")

	err := d.NotifyAll(context.Background(), msg)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.notify, 1)

	err = d.EditAll(context.Background(), msg)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.edits, 1)

	err = d.DeleteAll(context.Background(), "aB3dE5fG")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"aB3dE5fG"}, ok.deletes)
}

func TestDispatcher_NoBackends(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	assert.NoError(t, d.NotifyAll(context.Background(), Message{Shortcode: "x"}))
	assert.NoError(t, d.DeleteAll(context.Background(), "x"))
}

func TestHandleStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids", "webhook_ids.json")

	store, err := OpenHandleStore(path)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Put("aB3dE5fG", "1111"))
	require.NoError(t, store.Put("zZ9yY8xX", "2222"))

	reopened, err := OpenHandleStore(path)
	require.NoError(t, err)
	id, ok := reopened.Get("aB3dE5fG")
	require.True(t, ok)
	assert.Equal(t, "1111", id)
	assert.Equal(t, 2, reopened.Len())

	require.NoError(t, reopened.Remove("aB3dE5fG"))
	require.NoError(t, reopened.Remove("missing"))

	again, err := OpenHandleStore(path)
	require.NoError(t, err)
	_, ok = again.Get("aB3dE5fG")
	assert.False(t, ok)
	assert.Equal(t, 1, again.Len())
}

func TestHandleStore_EmptyAndCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	store, err := OpenHandleStore(empty)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o600))
	_, err = OpenHandleStore(corrupt)
	assert.Error(t, err)
}
