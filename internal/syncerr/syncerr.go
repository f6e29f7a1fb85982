// Package syncerr models the structured error records the sync engine
// raises on non-retriable failures, with optional first-failure-data-capture
// (FFDC) files, per spec.md §2 item 9 and §7. It follows the teacher's
// structured-JSON-report shape (internal/reporter/json.go's
// WriteJSONReport), one file per record.
package syncerr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Kind is the closed set of error kinds spec.md §7 enumerates.
type Kind string

const (
	ConfigParse     Kind = "ConfigParse"
	WatchSetup      Kind = "WatchSetup"
	TransferSpawn   Kind = "TransferSpawn"
	TransferNonZero Kind = "TransferNonZero"
	VanishedSource  Kind = "VanishedSource"
	NotifySend      Kind = "NotifySend"
	PeerUnavailable Kind = "PeerUnavailable"
	PersistWrite    Kind = "PersistWrite"
)

// Retriable reports whether this Kind consumes a retry attempt per
// spec.md §7's propagation rules.
func (k Kind) Retriable() bool {
	switch k {
	case TransferNonZero, TransferSpawn:
		return true
	default:
		return false
	}
}

// Record is one structured error, optionally carrying the path to a
// first-failure-data-capture file.
type Record struct {
	Kind      Kind      `json:"kind"`
	Entry     string    `json:"entry,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	FFDCPath  string    `json:"ffdc_path,omitempty"`
}

// Reporter builds Records and writes any attached diagnostic bytes as FFDC
// files under a configured directory. The Record itself is not written to
// disk by Report; MarshalFile does that separately.
type Reporter struct {
	dir string
}

// NewReporter creates a Reporter writing under dir. dir is created lazily
// on the first Report call that carries FFDC bytes.
func NewReporter(dir string) *Reporter {
	return &Reporter{dir: dir}
}

// Report builds a Record for kind/entry/err, optionally attaching ffdc
// (arbitrary diagnostic bytes, e.g. the transfer tool's combined output)
// as a sibling FFDC file, and returns the Record. Failure to write the
// FFDC file itself is folded into the Message rather than returned, since
// spec.md §7 treats PersistWrite-adjacent failures as log-only.
func (r *Reporter) Report(kind Kind, entry string, err error, ffdc []byte) Record {
	rec := Record{
		Kind:      kind,
		Entry:     entry,
		Message:   err.Error(),
		Timestamp: time.Now(),
	}
	if len(ffdc) == 0 {
		return rec
	}
	if path, werr := r.writeFFDC(kind, entry, ffdc); werr == nil {
		rec.FFDCPath = path
	} else {
		rec.Message = fmt.Sprintf("%s (ffdc write failed: %v)", rec.Message, werr)
	}
	return rec
}

func (r *Reporter) writeFFDC(kind Kind, entry string, ffdc []byte) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s_%d.log", kind, sanitize(entry), time.Now().UnixNano())
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, ffdc, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// MarshalFile writes rec as an indented JSON document at path, matching
// internal/reporter/json.go's WriteJSONReport shape.
func MarshalFile(path string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "entry"
	}
	return string(out)
}
