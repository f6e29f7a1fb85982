package engine

import (
	"path/filepath"
	"strings"

	"github.com/openbmc-project/bmc-data-sync/internal/catalog"
	"github.com/openbmc-project/bmc-data-sync/internal/pathwatch"
)

// OperationKind is what the engine derives a PathEvent into, per spec.md §3.
type OperationKind int

const (
	Copy OperationKind = iota
	DeletePeer
)

// Operation is a single unit of replication work for one entry.
type Operation struct {
	Kind  OperationKind
	Path  string // absolute local path this operation concerns
	IsDir bool
}

// deriveOperation implements spec.md §4.6's event-to-operation table:
// Write/Create/MovedIn → Copy, MovedOut/Delete/SelfDelete → Delete-on-peer.
func deriveOperation(pe pathwatch.PathEvent) (Operation, bool) {
	switch pe.Kind {
	case pathwatch.Write, pathwatch.MovedIn:
		return Operation{Kind: Copy, Path: pe.Path, IsDir: pe.IsDir}, true
	case pathwatch.Create:
		return Operation{Kind: Copy, Path: pe.Path, IsDir: pe.IsDir}, true
	case pathwatch.MovedOut, pathwatch.Delete, pathwatch.SelfDelete:
		return Operation{Kind: DeletePeer, Path: pe.Path}, true
	default:
		return Operation{}, false
	}
}

// destFor maps an arbitrary path under entry.Path onto the corresponding
// path under entry.DestPath, preserving the relative structure.
func destFor(entry *catalog.SyncEntry, path string) string {
	rel, err := filepath.Rel(entry.Path, path)
	if err != nil || rel == "." {
		return entry.DestPath
	}
	return filepath.Join(entry.DestPath, filepath.ToSlash(rel))
}

// inScope reports whether path is governed by entry at all: it must sit
// under entry.Path (or equal it), survive the exclude list, and — if an
// include list is configured — match it.
func inScope(entry *catalog.SyncEntry, path string) bool {
	if path != entry.Path && !hasPathPrefix(path, entry.Path) {
		return false
	}
	for _, ex := range entry.ExcludeList {
		if path == ex || hasPathPrefix(path, ex) {
			return false
		}
	}
	if len(entry.IncludeList) == 0 {
		return true
	}
	for _, inc := range entry.IncludeList {
		if path == inc || hasPathPrefix(path, inc) || hasPathPrefix(inc, path) {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+string(filepath.Separator))
}
