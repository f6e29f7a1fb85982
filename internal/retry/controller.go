// Package retry wraps one transfer attempt with spec.md §4.4's attempt-count
// and inter-attempt delay policy, including vanished-source parent fallback.
package retry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/openbmc-project/bmc-data-sync/internal/catalog"
)

// vanishedSourceExitCode is the transfer tool's documented "some source
// files vanished" exit status (spec.md §6).
const vanishedSourceExitCode = 24

// Transferer runs one transfer-tool invocation. internal/transfer.Runner
// satisfies this in production; tests inject a fake.
type Transferer interface {
	Run(ctx context.Context, commandLine string) (exitCode int, output string)
}

// TransferFunc adapts a function to the Transferer interface.
type TransferFunc func(ctx context.Context, commandLine string) (int, string)

// Run implements Transferer.
func (f TransferFunc) Run(ctx context.Context, commandLine string) (int, string) {
	return f(ctx, commandLine)
}

// Controller runs entries through a Transferer with the retry and
// vanished-source-fallback policy spec.md §4.4 specifies.
type Controller struct {
	Transferer Transferer
	// Command renders the transfer command line for one (src, dest,
	// filters) triple. Defaults to rsyncCommand, which shells out to
	// rsync — the reference tool spec.md's --filter syntax matches.
	Command func(src, dest string, filters []string) string
	Sleep   func(time.Duration) // overridable for tests
}

// New creates a Controller with production defaults.
func New(t Transferer) *Controller {
	return &Controller{
		Transferer: t,
		Command:    rsyncCommand,
		Sleep:      time.Sleep,
	}
}

// rsyncCommand builds an rsync invocation honoring the precomputed
// include/exclude filter fragments (spec.md §4.4).
func rsyncCommand(src, dest string, filters []string) string {
	parts := []string{"rsync", "-a"}
	parts = append(parts, filters...)
	parts = append(parts, shellQuote(src), shellQuote(dest))
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// vanishedPathPattern extracts the first quoted or bare absolute path in the
// transfer tool's stderr, which is where rsync-family tools report the
// path that disappeared mid-transfer.
var vanishedPathPattern = regexp.MustCompile(`["']?(/[^"'\s]+)["']?`)

// Run attempts to synchronize entry, retrying per its retry policy and
// falling back to the nearest existing ancestor on a vanished-source error
// without consuming an attempt, per spec.md §4.4. attempt is zero-based.
func (c *Controller) Run(ctx context.Context, entry *catalog.SyncEntry, attempt int) bool {
	return c.runFrom(ctx, entry.Path, entry.DestPath, entry, attempt)
}

// RunPath synchronizes a single path belonging to entry (as opposed to the
// entry's root), for the per-operation Immediate-sync case in spec.md
// §4.6. It honors the same retry and vanished-source policy as Run.
func (c *Controller) RunPath(ctx context.Context, entry *catalog.SyncEntry, src, dest string) bool {
	return c.runFrom(ctx, src, dest, entry, 0)
}

// RunDelete propagates the removal of path to the peer by re-syncing the
// nearest existing ancestor directory of path with an rsync --delete pass,
// the conventional way to mirror a deletion when the transfer tool itself
// is a black box (spec.md §6 does not prescribe a delete primitive).
func (c *Controller) RunDelete(ctx context.Context, entry *catalog.SyncEntry, path, destPath string) bool {
	ancestor := nearestExistingAncestor(path)
	if ancestor == "" {
		ancestor = filepath.Dir(path)
	}
	ancestorDest := destForAncestor(ancestor, path, destPath)
	cmd := c.deleteCommand(ancestor, ancestorDest, entry.Filters)
	exitCode, output := c.Transferer.Run(ctx, cmd)
	if exitCode == 0 {
		return true
	}
	slog.Warn("delete propagation failed", "entry", entry.Path, "path", path, "output", output)
	return false
}

func (c *Controller) deleteCommand(src, dest string, filters []string) string {
	parts := []string{"rsync", "-a", "--delete"}
	parts = append(parts, filters...)
	parts = append(parts, shellQuote(src+"/"), shellQuote(dest+"/"))
	return strings.Join(parts, " ")
}

// destForAncestor rewrites destPath (the already-translated destination of
// path) to the ancestor directory's corresponding destination, mirroring
// how many path components separate path from ancestor.
func destForAncestor(ancestor, path, destPath string) string {
	rel, err := filepath.Rel(ancestor, path)
	if err != nil || rel == "." {
		return destPath
	}
	dest := destPath
	for range strings.Split(filepath.ToSlash(rel), "/") {
		dest = filepath.Dir(dest)
	}
	return dest
}

func (c *Controller) runFrom(ctx context.Context, src, dest string, entry *catalog.SyncEntry, attempt int) bool {
	cmd := c.Command(src, dest, entry.Filters)
	exitCode, output := c.Transferer.Run(ctx, cmd)

	switch {
	case exitCode == 0:
		return true

	case exitCode == vanishedSourceExitCode:
		vanished := parseVanishedPath(output)
		if vanished == "" {
			vanished = src
		}
		ancestor := nearestExistingAncestor(vanished)
		if ancestor == src || ancestor == "" {
			// No useful fallback available; treat like any other failure
			// from here, still respecting the attempt budget.
			return c.failOrRetry(ctx, src, dest, entry, attempt, cmd, output)
		}
		slog.Warn("source vanished, retrying against nearest existing ancestor",
			"entry", entry.Path, "vanished", vanished, "ancestor", ancestor)
		// Parent-fallback invocation does not consume an attempt.
		return c.runFrom(ctx, ancestor, destFor(entry, ancestor), entry, attempt)

	default:
		return c.failOrRetry(ctx, src, dest, entry, attempt, cmd, output)
	}
}

func (c *Controller) failOrRetry(ctx context.Context, src, dest string, entry *catalog.SyncEntry, attempt int, cmd, output string) bool {
	if attempt+1 < int(entry.RetryPolicy.Attempts) {
		slog.Warn("transfer failed, retrying", "entry", entry.Path, "attempt", attempt, "command", cmd, "output", output)
		c.Sleep(entry.RetryPolicy.Interval)
		return c.runFrom(ctx, src, dest, entry, attempt+1)
	}
	slog.Error("transfer failed, retries exhausted", "entry", entry.Path, "attempts", entry.RetryPolicy.Attempts, "output", output)
	return false
}

// destFor rewrites the destination to mirror a fallback ancestor: it walks
// DestPath up by however many path components separate entry.Path from
// ancestor, so the peer-side ancestor lines up with the local one.
func destFor(entry *catalog.SyncEntry, ancestor string) string {
	rel, err := filepath.Rel(ancestor, entry.Path)
	if err != nil || rel == "." {
		return entry.DestPath
	}
	dest := entry.DestPath
	for range strings.Split(filepath.ToSlash(rel), "/") {
		dest = filepath.Dir(dest)
	}
	return dest
}

func parseVanishedPath(output string) string {
	m := vanishedPathPattern.FindStringSubmatch(output)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func nearestExistingAncestor(path string) string {
	dir := path
	for {
		if fileExists(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	_, err := statFn(path)
	return err == nil
}

// statFn is indirected so tests can simulate specific ancestors existing
// without touching the real filesystem.
var statFn = os.Stat
