// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"encoding/json"
	"fmt"
	"os"
)

// RunStats is the end-of-pipeline diagnostic summary: the statistics named
// in the error-handling design, one block per stage.
type RunStats struct {
	Resolver ResolverStats
	Joiner   JoinerStats
	// DecoderWarnings counts structural input errors that dropped a single
	// record (a malformed wikidata claim, a truncated revision) without
	// aborting the run.
	DecoderWarnings int64
}

// WriteRunStats marshals stats to path as JSON, writing to a temp file and
// renaming into place so a crash mid-write never leaves a corrupt stats
// file behind.
func WriteRunStats(stats *RunStats, path string) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("conceptjoin: marshaling run stats: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("conceptjoin: creating %q: %w", tmpPath, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("conceptjoin: writing %q: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("conceptjoin: syncing %q: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("conceptjoin: closing %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("conceptjoin: renaming %q to %q: %w", tmpPath, path, err)
	}
	return nil
}
