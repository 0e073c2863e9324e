//go:build windows

package notifier

import (
	"fmt"
	"os"
)

// writeFileAtomic writes to a sibling temp file then renames it over path
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write handle data: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace handle file: %w", err)
	}
	return nil
}
