// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"os"
	"path/filepath"
	"strings"
)

// CleanupWorkdir removes stale ".tmp" files left behind by a run that
// crashed mid-write. Per the design, a stage's temp files are owned by
// that stage and removed on success; the driver calls this once a run has
// finished, and any .tmp file still present then was left by a stage that
// never completed, so it's safe to discard.
func CleanupWorkdir(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(name, ".tmp") {
			if err := os.Remove(filepath.Join(path, name)); err != nil {
				return err
			}
		}
	}
	return nil
}
