package common

import (
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// CleanHTMLText strips markup and entity escapes that some JSON mirrors of
// HTML trackers leave inside titles.
func CleanHTMLText(raw string) string {
	value := strings.TrimSpace(raw)
	value = html.UnescapeString(value)
	value = tagPattern.ReplaceAllString(value, " ")
	value = strings.Join(strings.Fields(value), " ")
	return value
}

var sizeMultipliers = map[string]float64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
	"PB": 1 << 50,
}

// ParseHumanSize reads sizes like "704.9 MiB", "1,5 GB" or "12345". Binary
// and decimal suffixes are both treated as powers of 1024. Unparseable input
// yields 0.
func ParseHumanSize(raw string) int64 {
	value := strings.TrimSpace(strings.ToUpper(raw))
	if value == "" {
		return 0
	}
	value = strings.NewReplacer("KIB", "KB", "MIB", "MB", "GIB", "GB", "TIB", "TB", "PIB", "PB").Replace(value)

	unit := ""
	number := value
	for _, suffix := range []string{"PB", "TB", "GB", "MB", "KB", "B"} {
		if strings.HasSuffix(number, suffix) {
			unit = suffix
			number = strings.TrimSpace(strings.TrimSuffix(number, suffix))
			break
		}
	}
	if unit == "" {
		if parsed, err := strconv.ParseInt(number, 10, 64); err == nil && parsed > 0 {
			return parsed
		}
		return 0
	}

	parsed, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", "."), 64)
	bytes := parsed * sizeMultipliers[unit]
	if err != nil || parsed < 0 || math.IsNaN(bytes) || bytes >= math.MaxInt64 {
		return 0
	}
	return int64(bytes)
}
