package notifyqueue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/openbmc-project/bmc-data-sync/internal/catalog"
)

// Request is the wire format of one spooled notification, per spec.md §6.
type Request struct {
	ModifiedDataPath string     `json:"ModifiedDataPath"`
	NotifyInfo       NotifyInfo `json:"NotifyInfo"`
}

// NotifyInfo mirrors catalog.NotifySibling in the spool file's wire shape.
type NotifyInfo struct {
	Mode           catalog.NotifyMode   `json:"Mode"`
	Method         catalog.NotifyMethod `json:"Method"`
	NotifyServices []string             `json:"NotifyServices"`
}

// ShouldNotify reports whether a successful sync of modifiedPath under
// entry should produce a notification: notify_sibling must be configured,
// and either it names no specific paths or modifiedPath matches one.
func ShouldNotify(entry *catalog.SyncEntry, modifiedPath string) bool {
	if entry.NotifySibling == nil {
		return false
	}
	if len(entry.NotifySibling.Paths) == 0 {
		return true
	}
	for _, p := range entry.NotifySibling.Paths {
		if p == modifiedPath {
			return true
		}
	}
	return false
}

// Produce spools a notification request into dropDir. The write is atomic
// (temp file + rename), matching spec.md §4.5 and the same pattern used for
// the control-surface persistence file.
func Produce(dropDir, modifiedPath string, sib *catalog.NotifySibling) error {
	req := Request{
		ModifiedDataPath: modifiedPath,
		NotifyInfo: NotifyInfo{
			Mode:           sib.Mode,
			Method:         sib.Method,
			NotifyServices: sib.Services,
		},
	}
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal notify request: %w", err)
	}

	name := fmt.Sprintf("notifyReq_%d_%s.json", time.Now().Unix(), randSuffix())
	path := filepath.Join(dropDir, name)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write spool file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename spool file: %w", err)
	}
	return nil
}

// randSuffix renders 6 lowercase-hex characters from a fresh UUID, matching
// spec.md §6's "<rand6>" filename component.
func randSuffix() string {
	id := uuid.New()
	return id.String()[:6]
}
