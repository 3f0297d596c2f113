package csvexport

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// BOM is the UTF-8 byte order mark prepended for spreadsheet-application
// compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// MergeFragments concatenates per-batch CSV fragments into one CSV body
// with at most one header line. The first non-empty fragment contributes
// the header; subsequent fragments drop a leading line identical to it.
func MergeFragments(fragments []string) string {
	var header string
	var lines []string

	for _, fragment := range fragments {
		fragment = strings.TrimSpace(strings.TrimPrefix(fragment, string(BOM)))
		if fragment == "" {
			continue
		}
		rows := strings.Split(fragment, "\n")
		for i, row := range rows {
			row = strings.TrimRight(row, "\r")
			if row == "" {
				continue
			}
			if header == "" {
				header = row
				lines = append(lines, row)
				continue
			}
			if i == 0 && row == header {
				continue
			}
			lines = append(lines, row)
		}
	}
	return strings.Join(lines, "\n")
}

// WithBOM returns the CSV text as UTF-8 bytes with a leading BOM.
func WithBOM(csvText string) []byte {
	return append(append([]byte{}, BOM...), []byte(csvText)...)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a user-supplied name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header. Format: {sanitized_name}_{YYYY-MM-DD}.csv
func BuildFilename(name string) string {
	sanitized := SanitizeFilename(name)
	if sanitized == "" {
		sanitized = "fapiao"
	}
	date := time.Now().Format("2006-01-02")
	return fmt.Sprintf("%s_%s.csv", sanitized, date)
}
