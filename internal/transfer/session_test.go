package transfer

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type call struct {
	op   string
	args []string
}

type fakeConn struct {
	id     int
	calls  []call
	errs   map[string][]error
	closed bool
}

func (c *fakeConn) next(op string) error {
	queue := c.errs[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	c.errs[op] = queue[1:]
	return err
}

func (c *fakeConn) Put(localPath, remotePath string) error {
	c.calls = append(c.calls, call{"put", []string{localPath, remotePath}})
	return c.next("put")
}

func (c *fakeConn) Remove(remotePath string) error {
	c.calls = append(c.calls, call{"remove", []string{remotePath}})
	return c.next("remove")
}

func (c *fakeConn) Rename(oldPath, newPath string) error {
	c.calls = append(c.calls, call{"rename", []string{oldPath, newPath}})
	return c.next("rename")
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// fakeDialer fails with dialErrs in order, then hands out fresh connections.
// connErrs seeds per-op errors on the connection with the same index.
type fakeDialer struct {
	dialErrs []error
	connErrs map[int]map[string][]error
	dials    int
	conns    []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	d.dials++
	if len(d.dialErrs) > 0 {
		err := d.dialErrs[0]
		d.dialErrs = d.dialErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	conn := &fakeConn{id: len(d.conns), errs: map[string][]error{}}
	if seeded, ok := d.connErrs[conn.id]; ok {
		conn.errs = seeded
	}
	d.conns = append(d.conns, conn)
	return conn, nil
}

func newTestSession(d *fakeDialer, clock Clock) *Session {
	return NewSession(d, Options{
		Target:          "sftp.test:22",
		IdleTimeout:     5 * time.Minute,
		ConnectAttempts: 5,
		RetryDelay:      time.Millisecond,
		Clock:           clock,
	}, zerolog.Nop())
}

func writeLocalFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("png bytes"), 0o644))
	return p
}

func TestSessionState(t *testing.T) {
	clock := newFakeClock()
	state := newSessionState(clock)

	assert.True(t, state.NeverConnected())
	assert.False(t, state.Connected())
	assert.Zero(t, state.Idle())

	state.attach(&fakeConn{})
	clock.Advance(90 * time.Second)
	assert.True(t, state.Connected())
	assert.Equal(t, 90*time.Second, state.Idle())

	state.Touch()
	assert.Zero(t, state.Idle())

	state.detach()
	assert.True(t, state.NeverConnected())
	assert.False(t, state.Connected())
}

func TestSession_ReusesConnectionWithinIdleTimeout(t *testing.T) {
	clock := newFakeClock()
	dialer := &fakeDialer{}
	s := newTestSession(dialer, clock)
	local := writeLocalFile(t, "cat.png")

	require.NoError(t, s.Put(context.Background(), local, "/srv/images"))
	clock.Advance(4*time.Minute + 59*time.Second)
	require.NoError(t, s.Put(context.Background(), local, "/srv/images"))

	assert.Equal(t, 1, dialer.dials)
	assert.False(t, dialer.conns[0].closed)
	require.Len(t, dialer.conns[0].calls, 2)
	assert.Equal(t, "/srv/images/cat.png", dialer.conns[0].calls[0].args[1])
}

func TestSession_ReconnectsAfterIdleTimeout(t *testing.T) {
	clock := newFakeClock()
	dialer := &fakeDialer{}
	s := newTestSession(dialer, clock)

	require.NoError(t, s.Remove(context.Background(), "a.png", "/srv/images"))
	clock.Advance(5 * time.Minute)
	require.NoError(t, s.Remove(context.Background(), "b.png", "/srv/images"))

	assert.Equal(t, 2, dialer.dials)
	assert.True(t, dialer.conns[0].closed, "idle connection must be closed before reconnecting")
	assert.Len(t, dialer.conns[1].calls, 1)
}

// waitRecorder counts the waits between connect attempts
type waitRecorder struct {
	attempts []int
	delays   []time.Duration
}

func (w *waitRecorder) record(attempt int, delay time.Duration) {
	w.attempts = append(w.attempts, attempt)
	w.delays = append(w.delays, delay)
}

func newRecordingSession(d *fakeDialer, delay time.Duration) (*Session, *waitRecorder) {
	waits := &waitRecorder{}
	s := NewSession(d, Options{
		Target:          "sftp.test:22",
		ConnectAttempts: 5,
		RetryDelay:      delay,
		Clock:           newFakeClock(),
		OnRetry:         waits.record,
	}, zerolog.Nop())
	return s, waits
}

func TestSession_ConnectSucceedsOnFifthAttempt(t *testing.T) {
	refused := syscall.ECONNREFUSED
	dialer := &fakeDialer{dialErrs: []error{refused, refused, refused, io.ErrUnexpectedEOF}}
	s, waits := newRecordingSession(dialer, 20*time.Millisecond)

	started := time.Now()
	require.NoError(t, s.Rename(context.Background(), "a.png", "b.png", "/srv/images/"))

	assert.GreaterOrEqual(t, time.Since(started), 80*time.Millisecond)
	assert.Equal(t, []int{1, 2, 3, 4}, waits.attempts)
	assert.Equal(t, []time.Duration{
		20 * time.Millisecond, 20 * time.Millisecond, 20 * time.Millisecond, 20 * time.Millisecond,
	}, waits.delays)
	assert.Equal(t, 5, dialer.dials)
	require.Len(t, dialer.conns, 1)
	assert.Equal(t, []string{"/srv/images/a.png", "/srv/images/b.png"}, dialer.conns[0].calls[0].args)
}

func TestSession_ConnectGivesUpAfterFiveAttempts(t *testing.T) {
	refused := syscall.ECONNREFUSED
	dialer := &fakeDialer{dialErrs: []error{refused, refused, refused, refused, refused, nil}}
	s, waits := newRecordingSession(dialer, 20*time.Millisecond)

	err := s.Remove(context.Background(), "a.png", "/srv/images")

	require.Error(t, err)
	assert.Len(t, waits.delays, 4, "no wait after the last attempt")
	assert.Equal(t, 5, dialer.dials)
	var connErr *common.ConnectivityError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, 5, connErr.Attempts)
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
	assert.False(t, s.State().Connected())
}

func TestSession_AuthenticationFailureIsNotRetried(t *testing.T) {
	dialer := &fakeDialer{dialErrs: []error{ErrAuthentication}}
	s := newTestSession(dialer, newFakeClock())

	err := s.Remove(context.Background(), "a.png", "/srv/images")

	require.Error(t, err)
	assert.Equal(t, 1, dialer.dials)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, common.ErrNetworkFailure)
}

func TestSession_PutReconnectsOnceAfterConnectionLoss(t *testing.T) {
	dialer := &fakeDialer{
		// conn 0 loses the connection on put; the reconnect's first dial
		// is refused and its second succeeds.
		dialErrs: []error{nil, syscall.ECONNREFUSED},
		connErrs: map[int]map[string][]error{0: {"put": {io.EOF}}},
	}
	s := newTestSession(dialer, newFakeClock())
	local := writeLocalFile(t, "cat.png")

	require.NoError(t, s.Put(context.Background(), local, "/srv/images"))

	assert.Equal(t, 3, dialer.dials)
	require.Len(t, dialer.conns, 2)
	assert.True(t, dialer.conns[0].closed)
	assert.Len(t, dialer.conns[1].calls, 1)
	assert.True(t, s.State().Connected())
}

func TestSession_SecondConnectionFailureIsReported(t *testing.T) {
	dialer := &fakeDialer{
		connErrs: map[int]map[string][]error{
			0: {"remove": {syscall.ECONNRESET}},
			1: {"remove": {syscall.EPIPE}},
		},
	}
	s := newTestSession(dialer, newFakeClock())

	err := s.Remove(context.Background(), "a.png", "/srv/images")

	require.Error(t, err)
	var connErr *common.ConnectivityError
	assert.True(t, errors.As(err, &connErr))
	assert.Equal(t, 2, dialer.dials, "only one forced reconnect per operation")
	assert.False(t, s.State().Connected())
}

func TestSession_LocalFileMissingIsNotRetried(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(dialer, newFakeClock())

	err := s.Put(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "/srv/images")

	require.Error(t, err)
	assert.Equal(t, LocalFileMissing, Classify(err))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Zero(t, dialer.dials, "no connection for a missing local file")
}

func TestSession_RemoteErrorsAreNotRetried(t *testing.T) {
	dialer := &fakeDialer{
		connErrs: map[int]map[string][]error{0: {"remove": {fs.ErrNotExist}, "rename": {fs.ErrPermission}}},
	}
	s := newTestSession(dialer, newFakeClock())

	err := s.Remove(context.Background(), "gone.png", "/srv/images")
	require.Error(t, err)
	assert.Equal(t, RemoteFileMissing, Classify(err))
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = s.Rename(context.Background(), "a.png", "b.png", "/srv/images")
	require.Error(t, err)
	assert.Equal(t, PermissionDenied, Classify(err))
	assert.ErrorIs(t, err, common.ErrPermissionDenied)

	assert.Equal(t, 1, dialer.dials)
	assert.Len(t, dialer.conns[0].calls, 2)
}

func TestSession_DisconnectIsIdempotent(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(dialer, newFakeClock())

	s.Disconnect()
	require.NoError(t, s.Remove(context.Background(), "a.png", "/srv"))
	s.Disconnect()
	s.Disconnect()
	require.NoError(t, s.Close())

	assert.True(t, dialer.conns[0].closed)
	assert.True(t, s.State().NeverConnected())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{name: "eof", err: io.EOF, want: ConnectionFailure},
		{name: "reset", err: syscall.ECONNRESET, want: ConnectionFailure},
		{name: "auth", err: ErrAuthentication, want: OtherIOFailure},
		{name: "local missing", err: common.NewLocalResourceError("put", "/x", fs.ErrNotExist), want: LocalFileMissing},
		{name: "local permission", err: common.NewLocalResourceError("put", "/x", fs.ErrPermission), want: PermissionDenied},
		{name: "local directory", err: common.NewLocalResourceError("put", "/x", &fs.PathError{Op: "read", Path: "/x", Err: syscall.EISDIR}), want: OtherIOFailure},
		{name: "remote missing", err: fs.ErrNotExist, want: RemoteFileMissing},
		{name: "other", err: errors.New("disk full"), want: OtherIOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestRemoteJoin(t *testing.T) {
	assert.Equal(t, "/srv/images/cat.png", remoteJoin("/srv/images", "cat.png"))
	assert.Equal(t, "/srv/images/cat.png", remoteJoin("/srv/images/", "nested/cat.png"))
	assert.Equal(t, "/cat.png", remoteJoin("/", "cat.png"))
}
