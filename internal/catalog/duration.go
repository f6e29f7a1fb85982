package catalog

import (
	"regexp"
	"strconv"
	"time"
)

// isoDurationPattern matches the restricted ISO-8601 duration subset spec.md
// §4.1 documents: PT(nH)?(nM)?(nS)?
var isoDurationPattern = regexp.MustCompile(`^PT(?:([0-9]+)H)?(?:([0-9]+)M)?(?:([0-9]+)S)?$`)

// parseISODuration parses a "PTnHnMnS" string. Anything that doesn't match
// the pattern, or matches with every component empty, returns ok=false so
// the caller can log-and-default per spec.md §4.1.
func parseISODuration(s string) (d time.Duration, ok bool) {
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	if m[1] == "" && m[2] == "" && m[3] == "" {
		return 0, false
	}
	var total time.Duration
	if m[1] != "" {
		h, _ := strconv.Atoi(m[1])
		total += time.Duration(h) * time.Hour
	}
	if m[2] != "" {
		mm, _ := strconv.Atoi(m[2])
		total += time.Duration(mm) * time.Minute
	}
	if m[3] != "" {
		s, _ := strconv.Atoi(m[3])
		total += time.Duration(s) * time.Second
	}
	return total, true
}
