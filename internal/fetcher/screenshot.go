package fetcher

import (
	"os"
	"path/filepath"
)

// writeScreenshot persists PNG bytes at ref, creating parent directories
// as needed. It applies no screenshot policy: the cleanup service deletes
// screenshots older than retention_days, and no component enforces
// max_size_mb.
func writeScreenshot(ref string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(ref), 0o755); err != nil {
		return err
	}
	return os.WriteFile(ref, data, 0o644)
}
