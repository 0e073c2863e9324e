package transfer

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/aleister1102/imgsync/internal/metrics"
	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

// Conn is one live SFTP connection. Paths are remote absolute paths,
// except the first argument of Put which is a local path.
type Conn interface {
	Put(localPath, remotePath string) error
	Remove(remotePath string) error
	Rename(oldPath, newPath string) error
	Close() error
}

// Dialer opens new connections
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Options tune the connect and idle policy
type Options struct {
	// Target names the remote end in logs and errors
	Target          string
	IdleTimeout     time.Duration
	ConnectAttempts int
	RetryDelay      time.Duration
	Clock           Clock
	// OnRetry, when set, runs before each wait between connect attempts
	OnRetry func(attempt int, delay time.Duration)
}

// DefaultOptions returns 5 attempts 5 s apart and a 5 minute idle timeout
func DefaultOptions() Options {
	return Options{
		IdleTimeout:     5 * time.Minute,
		ConnectAttempts: 5,
		RetryDelay:      5 * time.Second,
	}
}

// Session owns a single long-lived SFTP connection. It is not safe for
// concurrent use; the sync loop calls it from one goroutine.
type Session struct {
	dialer Dialer
	opts   Options
	state  *SessionState
	logger zerolog.Logger
}

// NewSession creates a session. No connection is opened until the first operation.
func NewSession(dialer Dialer, opts Options, logger zerolog.Logger) *Session {
	defaults := DefaultOptions()
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaults.IdleTimeout
	}
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = defaults.ConnectAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	return &Session{
		dialer: dialer,
		opts:   opts,
		state:  newSessionState(opts.Clock),
		logger: logger.With().Str("module", "transfer").Str("target", opts.Target).Logger(),
	}
}

// State exposes the connection bookkeeping, read-only by convention
func (s *Session) State() *SessionState {
	return s.state
}

// Put uploads localPath into remoteDir under its base name
func (s *Session) Put(ctx context.Context, localPath, remoteDir string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		metrics.RecordTransferOp("put", false)
		return common.NewLocalResourceError("put", localPath, err)
	}
	if info.IsDir() {
		metrics.RecordTransferOp("put", false)
		return common.NewLocalResourceError("put", localPath, errors.New("is a directory"))
	}

	remotePath := remoteJoin(remoteDir, filepath.Base(localPath))
	return s.do(ctx, "put", remotePath, func(c Conn) error {
		return c.Put(localPath, remotePath)
	})
}

// Remove deletes remoteName from remoteDir
func (s *Session) Remove(ctx context.Context, remoteName, remoteDir string) error {
	remotePath := remoteJoin(remoteDir, remoteName)
	return s.do(ctx, "remove", remotePath, func(c Conn) error {
		return c.Remove(remotePath)
	})
}

// Rename moves oldName to newName inside remoteDir
func (s *Session) Rename(ctx context.Context, oldName, newName, remoteDir string) error {
	oldPath := remoteJoin(remoteDir, oldName)
	newPath := remoteJoin(remoteDir, newName)
	return s.do(ctx, "rename", oldPath, func(c Conn) error {
		return c.Rename(oldPath, newPath)
	})
}

// Disconnect closes the connection if any. Safe to call repeatedly.
func (s *Session) Disconnect() {
	conn := s.state.detach()
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Error while closing SFTP connection")
	}
	s.logger.Debug().Msg("Disconnected from SFTP server")
}

// Close is Disconnect for deferred cleanup
func (s *Session) Close() error {
	s.Disconnect()
	return nil
}

// do runs op on a healthy connection. A connection failure forces one
// reconnect (with the full connect policy) and one retry of op.
func (s *Session) do(ctx context.Context, op, remotePath string, fn func(Conn) error) error {
	conn, err := s.ensureConnected(ctx)
	if err != nil {
		metrics.RecordTransferOp(op, false)
		return err
	}

	err = fn(conn)
	if err == nil {
		s.state.Touch()
		metrics.RecordTransferOp(op, true)
		return nil
	}

	if Classify(err) != ConnectionFailure {
		metrics.RecordTransferOp(op, false)
		return s.opError(op, remotePath, err)
	}

	s.logger.Warn().Err(err).Str("op", op).Str("path", remotePath).Msg("Connection lost during operation, reconnecting")
	metrics.RecordReconnect("error")
	s.Disconnect()

	conn, err = s.ensureConnected(ctx)
	if err != nil {
		metrics.RecordTransferOp(op, false)
		return err
	}

	err = fn(conn)
	if err == nil {
		s.state.Touch()
		metrics.RecordTransferOp(op, true)
		return nil
	}

	metrics.RecordTransferOp(op, false)
	if Classify(err) == ConnectionFailure {
		s.Disconnect()
		return common.NewConnectivityError(op, s.opts.Target, 2, err)
	}
	return s.opError(op, remotePath, err)
}

// ensureConnected returns the live connection, dropping it first when it
// has been idle for IdleTimeout or longer.
func (s *Session) ensureConnected(ctx context.Context) (Conn, error) {
	if s.state.Connected() {
		idle := s.state.Idle()
		if idle < s.opts.IdleTimeout {
			return s.state.conn, nil
		}
		s.logger.Info().Dur("idle", idle).Msg("SFTP connection idle too long, reconnecting")
		metrics.RecordReconnect("idle")
		s.Disconnect()
	}
	return s.connect(ctx)
}

func (s *Session) connect(ctx context.Context) (Conn, error) {
	attempts := 0
	operation := func() (Conn, error) {
		attempts++
		conn, err := s.dialer.Dial(ctx)
		if err != nil {
			metrics.RecordConnectAttempt(false)
			if errors.Is(err, ErrAuthentication) || errors.Is(err, common.ErrInvalidConfiguration) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		metrics.RecordConnectAttempt(true)
		return conn, nil
	}

	conn, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.opts.RetryDelay)),
		backoff.WithMaxTries(uint(s.opts.ConnectAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn().
				Err(err).
				Int("attempt", attempts).
				Int("max_attempts", s.opts.ConnectAttempts).
				Dur("retry_in", next).
				Msg("SFTP connect failed, retrying")
			if s.opts.OnRetry != nil {
				s.opts.OnRetry(attempts, next)
			}
		}),
	)
	if err != nil {
		s.logger.Error().Err(err).Int("attempts", attempts).Msg("Could not connect to SFTP server")
		return nil, common.NewConnectivityError("connect", s.opts.Target, attempts, err)
	}

	s.state.attach(conn)
	s.logger.Info().Int("attempts", attempts).Msg("Connected to SFTP server")
	return conn, nil
}

func (s *Session) opError(op, remotePath string, err error) error {
	var local *common.LocalResourceError
	if errors.As(err, &local) {
		return err
	}
	return &OpError{Op: op, Path: remotePath, Kind: Classify(err), Err: err}
}

// remoteJoin builds a remote path from a directory and a base name
func remoteJoin(remoteDir, name string) string {
	return path.Join(remoteDir, path.Base(filepath.ToSlash(name)))
}
