package transfer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"syscall"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/pkg/sftp"
)

// ErrAuthentication marks dial failures that retrying cannot fix:
// rejected credentials, unreadable keys or a host key mismatch.
var ErrAuthentication = errors.New("sftp authentication failed")

// FailureKind classifies a transfer error
type FailureKind int

const (
	OtherIOFailure FailureKind = iota
	ConnectionFailure
	LocalFileMissing
	RemoteFileMissing
	PermissionDenied
)

func (k FailureKind) String() string {
	switch k {
	case ConnectionFailure:
		return "connection_failure"
	case LocalFileMissing:
		return "local_file_missing"
	case RemoteFileMissing:
		return "remote_file_missing"
	case PermissionDenied:
		return "permission_denied"
	default:
		return "io_failure"
	}
}

// OpError is a non-retryable failure of a remote operation
type OpError struct {
	Op   string
	Path string
	Kind FailureKind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("sftp %s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is maps remote kinds onto the shared sentinels
func (e *OpError) Is(target error) bool {
	switch target {
	case common.ErrNotFound:
		return e.Kind == RemoteFileMissing
	case common.ErrPermissionDenied:
		return e.Kind == PermissionDenied
	}
	return false
}

// Classify maps an error returned by a Conn or Dialer onto a FailureKind
func Classify(err error) FailureKind {
	var local *common.LocalResourceError
	if errors.As(err, &local) {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return LocalFileMissing
		case errors.Is(err, fs.ErrPermission):
			return PermissionDenied
		}
		return OtherIOFailure
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}

	if isConnectionError(err) {
		return ConnectionFailure
	}

	var status *sftp.StatusError
	if errors.As(err, &status) {
		switch status.FxCode() {
		case sftp.ErrSSHFxNoSuchFile:
			return RemoteFileMissing
		case sftp.ErrSSHFxPermissionDenied:
			return PermissionDenied
		}
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return RemoteFileMissing
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	}
	return OtherIOFailure
}

// isConnectionError reports transport-level failures worth a reconnect
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthentication) {
		return false
	}

	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, sftp.ErrSSHFxConnectionLost),
		errors.Is(err, sftp.ErrSSHFxNoConnection),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH):
		return true
	}

	var status *sftp.StatusError
	if errors.As(err, &status) {
		code := status.FxCode()
		return code == sftp.ErrSSHFxConnectionLost || code == sftp.ErrSSHFxNoConnection
	}

	// Errno satisfies net.Error; only the codes listed above count
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
