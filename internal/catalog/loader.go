package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// rawEntry mirrors the catalogue file wire format documented in spec.md §6.
type rawEntry struct {
	Path            string             `json:"Path"`
	DestinationPath string             `json:"DestinationPath"`
	Description     string             `json:"Description"`
	SyncDirection   string             `json:"SyncDirection"`
	SyncType        string             `json:"SyncType"`
	Periodicity     string             `json:"Periodicity"`
	RetryAttempts   *uint8             `json:"RetryAttempts"`
	RetryInterval   string             `json:"RetryInterval"`
	ExcludeList     []string           `json:"ExcludeList"`
	IncludeList     []string           `json:"IncludeList"`
	NotifySibling   *rawNotifySibling  `json:"NotifySibling"`
}

type rawNotifySibling struct {
	NotifyOnPaths  []string `json:"NotifyOnPaths"`
	Mode           string   `json:"Mode"`
	Method         string   `json:"Method"`
	NotifyServices []string `json:"NotifyServices"`
}

type rawFile struct {
	Files       []rawEntry `json:"Files"`
	Directories []rawEntry `json:"Directories"`
}

// Load reads every regular file under dir, parses each as a catalogue
// document, and returns the deduplicated, validated set of SyncEntry
// records. A per-file parse error is logged and that file is skipped,
// per spec.md §4.1 — Load never fails outright because of one bad file.
func Load(dir string) ([]*SyncEntry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read catalogue directory %s: %w", dir, err)
	}

	// sort for deterministic iteration order, matching the config loader's
	// reproducible-output habit.
	names := make([]string, 0, len(files))
	for _, f := range files {
		if f.Type().IsRegular() {
			names = append(names, f.Name())
		}
	}
	sort.Strings(names)

	var entries []*SyncEntry
	seen := make(map[string]string) // path -> source file

	for _, name := range names {
		path := filepath.Join(dir, name)
		parsed, err := loadFile(path)
		if err != nil {
			slog.Warn("skipping catalogue file", "file", path, "error", err)
			continue
		}
		for _, e := range parsed {
			if prev, dup := seen[e.Path]; dup {
				slog.Warn("skipping duplicate catalogue entry", "path", e.Path, "file", path, "previous_file", prev)
				continue
			}
			seen[e.Path] = path
			entries = append(entries, e)
		}
	}

	return entries, nil
}

// loadFile parses one catalogue file into validated SyncEntry records.
func loadFile(path string) ([]*SyncEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var rf rawFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	var entries []*SyncEntry
	for _, re := range rf.Files {
		e, err := toEntry(re, false, path)
		if err != nil {
			slog.Warn("skipping catalogue entry", "file", path, "path", re.Path, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	for _, re := range rf.Directories {
		e, err := toEntry(re, true, path)
		if err != nil {
			slog.Warn("skipping catalogue entry", "file", path, "path", re.Path, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func toEntry(re rawEntry, isDir bool, sourceFile string) (*SyncEntry, error) {
	if re.Path == "" {
		return nil, fmt.Errorf("missing Path")
	}

	resolved, err := filepath.Abs(re.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if target, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = target
	}

	e := &SyncEntry{
		Path:       resolved,
		IsDir:      isDir,
		DestPath:   re.DestinationPath,
		Direction:  Direction(orDefault(re.SyncDirection, string(Active2Passive))),
		SyncType:   SyncType(orDefault(re.SyncType, string(Immediate))),
		SourceFile: sourceFile,
	}

	if re.Periodicity != "" {
		d, ok := parseISODuration(re.Periodicity)
		if !ok {
			slog.Warn("invalid Periodicity, using default", "path", re.Path, "value", re.Periodicity)
			d = DefaultPeriodicity
		}
		e.Periodicity = d
	}

	e.RetryPolicy = DefaultRetry
	if re.RetryAttempts != nil {
		e.RetryPolicy.Attempts = *re.RetryAttempts
	}
	if re.RetryInterval != "" {
		d, ok := parseISODuration(re.RetryInterval)
		if !ok {
			slog.Warn("invalid RetryInterval, using default", "path", re.Path, "value", re.RetryInterval)
			d = DefaultRetry.Interval
		}
		e.RetryPolicy.Interval = d
	}

	e.ExcludeList = re.ExcludeList
	e.IncludeList = re.IncludeList

	if re.NotifySibling != nil {
		e.NotifySibling = &NotifySibling{
			Paths:    re.NotifySibling.NotifyOnPaths,
			Mode:     NotifyMode(re.NotifySibling.Mode),
			Method:   NotifyMethod(re.NotifySibling.Method),
			Services: re.NotifySibling.NotifyServices,
		}
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
