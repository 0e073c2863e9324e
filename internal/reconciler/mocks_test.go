package reconciler

import (
	"context"
	"sync"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/aleister1102/imgsync/internal/models"
	"github.com/aleister1102/imgsync/internal/notifier"
	"github.com/stretchr/testify/mock"
)

const testBaseURL = "https://img.example.com"

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) Lookup(ctx context.Context, filename string) (*models.Assignment, error) {
	args := m.Called(ctx, filename)
	a, _ := args.Get(0).(*models.Assignment)
	return a, args.Error(1)
}

func (m *mockRegistry) Create(ctx context.Context, a models.Assignment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRegistry) Update(ctx context.Context, a models.Assignment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockRegistry) Delete(ctx context.Context, shortcode string) error {
	return m.Called(ctx, shortcode).Error(0)
}

func (m *mockRegistry) ShortcodeURL(shortcode string) string {
	return testBaseURL + "/" + shortcode
}

type mockTransfer struct {
	mock.Mock
}

func (m *mockTransfer) Put(ctx context.Context, localPath, remoteDir string) error {
	return m.Called(ctx, localPath, remoteDir).Error(0)
}

func (m *mockTransfer) Remove(ctx context.Context, remoteName, remoteDir string) error {
	return m.Called(ctx, remoteName, remoteDir).Error(0)
}

func (m *mockTransfer) Rename(ctx context.Context, oldName, newName, remoteDir string) error {
	return m.Called(ctx, oldName, newName, remoteDir).Error(0)
}

type mockNotifications struct {
	mock.Mock
}

func (m *mockNotifications) NotifyAll(ctx context.Context, msg notifier.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockNotifications) EditAll(ctx context.Context, msg notifier.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockNotifications) DeleteAll(ctx context.Context, shortcode string) error {
	return m.Called(ctx, shortcode).Error(0)
}

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) Record(ctx context.Context, o models.SyncOutcome) (int64, error) {
	args := m.Called(ctx, o)
	return int64(args.Int(0)), args.Error(1)
}

// fakeRegistry is a stateful registry keyed by filename
type fakeRegistry struct {
	mu      sync.Mutex
	byFile  map[string]string
	creates int
	updates int
	deletes int
	lookups int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{byFile: map[string]string{}}
}

func (f *fakeRegistry) Lookup(_ context.Context, filename string) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	code, ok := f.byFile[filename]
	if !ok {
		return nil, nil
	}
	return &models.Assignment{Shortcode: code, Filename: filename}, nil
}

func (f *fakeRegistry) Create(_ context.Context, a models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, code := range f.byFile {
		if code == a.Shortcode {
			return common.NewRemoteServiceError("registry", "create", 409, "Conflict")
		}
	}
	f.creates++
	f.byFile[a.Filename] = a.Shortcode
	return nil
}

func (f *fakeRegistry) Update(_ context.Context, a models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	for name, code := range f.byFile {
		if code == a.Shortcode {
			delete(f.byFile, name)
		}
	}
	f.byFile[a.Filename] = a.Shortcode
	return nil
}

func (f *fakeRegistry) Delete(_ context.Context, shortcode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for name, code := range f.byFile {
		if code == shortcode {
			delete(f.byFile, name)
		}
	}
	return nil
}

func (f *fakeRegistry) ShortcodeURL(shortcode string) string {
	return testBaseURL + "/" + shortcode
}

// recordingBackend is a notifier.Notifier that keeps handles in memory
type recordingBackend struct {
	handles map[string]string
	posted  []notifier.Message
	edited  []notifier.Message
	deleted []string
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{handles: map[string]string{}}
}

func (b *recordingBackend) Name() string { return "recording" }

func (b *recordingBackend) Notify(_ context.Context, msg notifier.Message) (string, error) {
	b.posted = append(b.posted, msg)
	id := "msg-" + msg.Shortcode
	b.handles[msg.Shortcode] = id
	return id, nil
}

func (b *recordingBackend) Edit(_ context.Context, msg notifier.Message) error {
	if _, ok := b.handles[msg.Shortcode]; !ok {
		return nil
	}
	b.edited = append(b.edited, msg)
	return nil
}

func (b *recordingBackend) Delete(_ context.Context, shortcode string) error {
	if _, ok := b.handles[shortcode]; !ok {
		return nil
	}
	b.deleted = append(b.deleted, shortcode)
	delete(b.handles, shortcode)
	return nil
}
