package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/magnet"
)

const PlaceholderTitle = "Unknown title"

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Record is one upstream result after adapter-specific decoding but before
// any validation. Adapters fill what their payload carries and leave the
// rest zero.
type Record struct {
	Title     string   `json:"title"`
	InfoHash  string   `json:"infoHash"`
	Magnet    string   `json:"magnet"`
	Size      Value    `json:"size"`
	SizeLabel string   `json:"sizeLabel"`
	Seeders   Value    `json:"seeders"`
	Leechers  Value    `json:"leechers"`
	Uploaded  Value    `json:"uploaded"`
	Category  string   `json:"category"`
	Trackers  []string `json:"trackers"`
	// Source is whatever the upstream claims; Descriptor ignores it.
	Source string `json:"source"`
}

// Descriptor maps rec into the canonical shape. It reports false for records
// that have neither a title nor an identifying hash.
func Descriptor(rec Record, adapterID string) (domain.ResourceDescriptor, bool) {
	title := strings.TrimSpace(rec.Title)
	uri := strings.TrimSpace(rec.Magnet)
	if uri != "" && !magnet.IsMagnetURI(uri) {
		uri = ""
	}

	hash := magnet.NormalizeInfoHash(rec.InfoHash)
	if derived := magnet.InfoHash(uri); derived != "" && !magnet.SameHash(uri, hash) {
		hash = derived
	} else if hash == "" {
		hash = derived
	}
	if title == "" && hash == "" {
		return domain.ResourceDescriptor{}, false
	}
	if title == "" {
		title = PlaceholderTitle
	}

	category := strings.TrimSpace(rec.Category)
	if category == "" {
		category = domain.UnknownCategory
	}

	trackers := make([]string, 0, len(rec.Trackers))
	for _, tracker := range rec.Trackers {
		if tracker = strings.TrimSpace(tracker); tracker != "" {
			trackers = append(trackers, tracker)
		}
	}

	size := rec.Size.Int64()
	label := strings.TrimSpace(rec.SizeLabel)
	if size != nil {
		label = FormatSize(*size)
	}

	return domain.ResourceDescriptor{
		Title:     title,
		Magnet:    uri,
		InfoHash:  hash,
		Size:      size,
		SizeLabel: label,
		Seeders:   rec.Seeders.Int(),
		Leechers:  rec.Leechers.Int(),
		Uploaded:  ParseTimestamp(rec.Uploaded),
		Category:  category,
		Trackers:  trackers,
		Source:    adapterID,
	}, true
}

// Descriptors maps every record, silently dropping the ones Descriptor
// rejects.
func Descriptors(records []Record, adapterID string) []domain.ResourceDescriptor {
	out := make([]domain.ResourceDescriptor, 0, len(records))
	for _, rec := range records {
		if item, ok := Descriptor(rec, adapterID); ok {
			out = append(out, item)
		}
	}
	return out
}

func FormatSize(bytes int64) string {
	if bytes < 0 {
		return ""
	}
	value := float64(bytes)
	idx := 0
	for value >= 1024 && idx < len(sizeUnits)-1 {
		value /= 1024
		idx++
	}
	precision := 0
	if value < 10 && idx > 0 {
		precision = 1
	}
	return fmt.Sprintf("%.*f %s", precision, value, sizeUnits[idx])
}

// ParseTimestamp accepts unix seconds or milliseconds and the textual layouts
// upstreams are known to send. Anything else yields nil.
func ParseTimestamp(v Value) *time.Time {
	text := v.String()
	if text == "" {
		return nil
	}
	if ts, err := strconv.ParseInt(text, 10, 64); err == nil {
		if ts <= 0 {
			return nil
		}
		var value time.Time
		if ts >= 1_000_000_000_000 {
			value = time.UnixMilli(ts).UTC()
		} else {
			value = time.Unix(ts, 0).UTC()
		}
		return &value
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			value := parsed.UTC()
			return &value
		}
	}
	return nil
}
