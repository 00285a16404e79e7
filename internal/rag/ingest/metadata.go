package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/DocQA/internal/config"
)

var unsafeIDChars = regexp.MustCompile(`[^0-9a-zA-Z_-]`)

// FileID turns a file name into an opaque identifier safe for passage ids.
func FileID(name string) string {
	return unsafeIDChars.ReplaceAllString(filepath.Base(name), "_")
}

func passageID(fileID string, seq int) string {
	return fmt.Sprintf("%s-%d", fileID, seq)
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(config.PassageTimestampLayout)
}

var errBadPDFDate = errors.New("malformed pdf date")

// ParsePDFDate reads a PDF date string, D:YYYYMMDDHHmmSSOHH'mm', where everything after the
// year is optional. A missing offset is read as UTC.
func ParsePDFDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "D:")

	digits := 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits < 4 || digits > 14 || digits%2 != 0 {
		return time.Time{}, fmt.Errorf("%w: %q", errBadPDFDate, raw)
	}

	fields := []int{0, 1, 1, 0, 0, 0}
	fields[0], _ = strconv.Atoi(s[:4])
	for i, pos := 1, 4; pos < digits; i, pos = i+1, pos+2 {
		fields[i], _ = strconv.Atoi(s[pos : pos+2])
	}
	if fields[1] < 1 || fields[1] > 12 || fields[2] < 1 || fields[2] > 31 ||
		fields[3] > 23 || fields[4] > 59 || fields[5] > 59 {
		return time.Time{}, fmt.Errorf("%w: %q", errBadPDFDate, raw)
	}

	loc, err := parsePDFOffset(s[digits:])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", err, raw)
	}

	t := time.Date(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, loc)
	return t.UTC(), nil
}

func parsePDFOffset(s string) (*time.Location, error) {
	if s == "" || s == "Z" || strings.HasPrefix(s, "Z") {
		return time.UTC, nil
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, errBadPDFDate
	}

	parts := strings.Split(strings.TrimSuffix(s[1:], "'"), "'")
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours > 23 {
		return nil, errBadPDFDate
	}
	minutes := 0
	if len(parts) > 1 && parts[1] != "" {
		minutes, err = strconv.Atoi(parts[1])
		if err != nil || minutes > 59 {
			return nil, errBadPDFDate
		}
	}

	return time.FixedZone("", sign*(hours*3600+minutes*60)), nil
}
