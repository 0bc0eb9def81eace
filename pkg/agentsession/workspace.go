package agentsession

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Fingerprint is one file's content hash and size at a point in time.
type Fingerprint struct {
	Hash string
	Size int64
}

var skipEntries = map[string]bool{
	".git":         true,
	"node_modules": true,
	".obra":        true,
}

// SnapshotWorkspace walks dir and returns a content fingerprint for every
// regular file, skipping VCS and dependency directories and the session's
// own write-probe. A missing or unreadable dir yields an empty snapshot
// rather than an error, since a workspace may not exist yet on first run.
func SnapshotWorkspace(dir string) map[string]Fingerprint {
	out := make(map[string]Fingerprint)
	if dir == "" {
		return out
	}

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipEntries[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".obra-write-probe") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			// Transient (deleted mid-walk) or unreadable; skip rather than
			// fail the whole snapshot.
			return nil
		}
		sum := sha256.Sum256(data)
		out[rel] = Fingerprint{Hash: hex.EncodeToString(sum[:]), Size: int64(len(data))}
		return nil
	})
	return out
}

// WorkspaceChange is a path-level diff result between two snapshots.
type WorkspaceChange struct {
	Path string
	Kind string // "created", "modified", or "deleted"
	Hash string
	Size int64
}

// DiffWorkspace compares two snapshots and reports every created, modified,
// or deleted file between them, used by the Iteration Driver to build the
// FileChange audit trail around a Send call.
func DiffWorkspace(before, after map[string]Fingerprint) []WorkspaceChange {
	var changes []WorkspaceChange
	for path, a := range after {
		if b, ok := before[path]; !ok {
			changes = append(changes, WorkspaceChange{Path: path, Kind: "created", Hash: a.Hash, Size: a.Size})
		} else if b.Hash != a.Hash {
			changes = append(changes, WorkspaceChange{Path: path, Kind: "modified", Hash: a.Hash, Size: a.Size})
		}
	}
	for path, b := range before {
		if _, ok := after[path]; !ok {
			changes = append(changes, WorkspaceChange{Path: path, Kind: "deleted", Hash: b.Hash, Size: b.Size})
		}
	}
	return changes
}
