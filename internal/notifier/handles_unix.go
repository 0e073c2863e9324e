//go:build !windows

package notifier

import (
	"fmt"

	"github.com/google/renameio/v2"
)

// writeFileAtomic writes data to a pending file, fsyncs it and renames it over path
func writeFileAtomic(path string, data []byte) error {
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending handle file: %w", err)
	}
	defer func() {
		_ = pendingFile.Cleanup()
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write handle data: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace handle file: %w", err)
	}
	return nil
}
