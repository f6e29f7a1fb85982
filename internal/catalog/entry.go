// Package catalog loads the replication catalogue and models one
// synchronizable entry.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Direction selects which role transmits for an entry.
type Direction string

const (
	Active2Passive Direction = "Active2Passive"
	Passive2Active Direction = "Passive2Active"
	Bidirectional  Direction = "Bidirectional"
)

// SyncType selects which engine loop drives an entry.
type SyncType string

const (
	Immediate SyncType = "Immediate"
	Periodic  SyncType = "Periodic"
)

// NotifyMode selects the sibling's notification transport.
type NotifyMode string

const (
	NotifyDBus    NotifyMode = "DBus"
	NotifySystemd NotifyMode = "Systemd"
)

// NotifyMethod selects how the sibling reacts to a notification.
type NotifyMethod string

const (
	NotifyReload  NotifyMethod = "Reload"
	NotifyRestart NotifyMethod = "Restart"
)

// Retry holds the per-entry retry policy.
type Retry struct {
	Attempts uint8
	Interval time.Duration
}

// DefaultRetry is applied when an entry omits RetryAttempts/RetryInterval.
var DefaultRetry = Retry{Attempts: 3, Interval: time.Second}

// DefaultPeriodicity is applied to Periodic entries that omit Periodicity.
const DefaultPeriodicity = 60 * time.Second

// NotifySibling describes the post-transfer action to take on the peer.
type NotifySibling struct {
	Paths    []string // optional; if set, only these modified paths notify
	Mode     NotifyMode
	Method   NotifyMethod
	Services []string
}

// SyncEntry is one record from the catalogue: a path and its replication
// policy. Fields mirror spec.md §3 exactly; Filters is a derived field
// computed once at load time (spec.md §4.4).
type SyncEntry struct {
	Path          string // absolute, canonicalized; primary key
	IsDir         bool
	DestPath      string // defaults to Path when absent
	Direction     Direction
	SyncType      SyncType
	Periodicity   time.Duration // zero unless SyncType == Periodic
	RetryPolicy   Retry
	ExcludeList   []string
	IncludeList   []string
	NotifySibling *NotifySibling

	// SourceFile records which catalogue file this entry was parsed from,
	// for diagnostics only.
	SourceFile string

	// Filters holds the precomputed "--filter='+/ <p>'" / "--filter='-/ <p>'"
	// fragments for IncludeList/ExcludeList, relative to Path. Populated by
	// Validate.
	Filters []string
}

// EligibleFor reports whether this entry transmits when the local role is r.
func (e *SyncEntry) EligibleFor(r Role) bool {
	switch e.Direction {
	case Active2Passive:
		return r == RoleActive
	case Passive2Active:
		return r == RolePassive
	case Bidirectional:
		return r == RoleActive || r == RolePassive
	default:
		return false
	}
}

// Role mirrors internal/role.Role without importing that package, to avoid
// a dependency cycle (catalog is loaded before the role provider exists).
type Role int

const (
	RoleUnknown Role = iota
	RoleActive
	RolePassive
)

// Validate checks the invariants spec.md §3 requires of a single entry and
// precomputes Filters. path uniqueness and cross-entry invariants are
// checked by the loader across the whole catalogue.
func (e *SyncEntry) Validate() error {
	if e.Path == "" {
		return fmt.Errorf("entry has empty path")
	}
	if e.DestPath == "" {
		e.DestPath = e.Path
	}
	switch e.SyncType {
	case Periodic:
		if e.Periodicity <= 0 {
			e.Periodicity = DefaultPeriodicity
		}
	case Immediate:
		if e.Periodicity != 0 {
			return fmt.Errorf("entry %q: periodicity must be unset for Immediate sync", e.Path)
		}
	default:
		return fmt.Errorf("entry %q: unknown sync_type %q", e.Path, e.SyncType)
	}

	if e.RetryPolicy == (Retry{}) {
		e.RetryPolicy = DefaultRetry
	}

	exclude := make(map[string]struct{}, len(e.ExcludeList))
	for _, p := range e.ExcludeList {
		exclude[p] = struct{}{}
	}
	for _, p := range e.IncludeList {
		if _, conflict := exclude[p]; conflict {
			return fmt.Errorf("entry %q: path %q is in both include_list and exclude_list", e.Path, p)
		}
	}

	e.Filters = buildFilters(e.IncludeList, e.ExcludeList)
	return nil
}

// buildFilters renders include/exclude lists into rsync-style filter
// fragments, computed once so the retry controller never recomputes them
// per attempt. Each rule is single-quoted, since the command line is run
// through /bin/sh.
func buildFilters(include, exclude []string) []string {
	filter := func(rule string) string {
		return "--filter='" + strings.ReplaceAll(rule, "'", `'\''`) + "'"
	}
	filters := make([]string, 0, len(include)+len(exclude))
	for _, p := range include {
		filters = append(filters, filter("+/ "+p))
	}
	for _, p := range exclude {
		filters = append(filters, filter("-/ "+p))
	}
	if len(include) > 0 {
		// allow-list semantics: once any include rule exists, exclude
		// everything else not explicitly allowed.
		filters = append(filters, filter("-/ *"))
	}
	return filters
}
