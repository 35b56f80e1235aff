package magnet

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/anacrolix/torrent/metainfo"

	"github.com/lovedemo/seedManage/internal/domain"
)

const (
	prefix       = "magnet:?"
	defaultTitle = "Magnet Link"
)

// IsMagnetURI reports whether input should be treated as a magnet link
// rather than a search term.
func IsMagnetURI(input string) bool {
	value := strings.TrimSpace(input)
	return len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix)
}

// Parse turns a magnet link into a descriptor. Missing dn and xt are
// tolerated; a malformed URI or a non-magnet scheme is not.
func Parse(raw string) (domain.ResourceDescriptor, error) {
	value := strings.TrimSpace(raw)
	uri, err := url.Parse(value)
	if err != nil {
		return domain.ResourceDescriptor{}, fmt.Errorf("%w: %v", domain.ErrInvalidMagnetURI, err)
	}
	if !strings.EqualFold(uri.Scheme, "magnet") {
		return domain.ResourceDescriptor{}, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidMagnetURI, uri.Scheme)
	}

	params := parseParams(uri.RawQuery)
	title := strings.TrimSpace(first(params, "dn"))
	if title == "" {
		title = defaultTitle
	}
	trackers := make([]string, 0, len(params["tr"]))
	for _, tracker := range params["tr"] {
		if tracker = strings.TrimSpace(tracker); tracker != "" {
			trackers = append(trackers, tracker)
		}
	}

	return domain.ResourceDescriptor{
		Title:    title,
		Magnet:   value,
		InfoHash: hashFromXT(first(params, "xt")),
		Category: domain.MagnetCategory,
		Trackers: trackers,
		Source:   domain.MagnetSource,
	}, nil
}

// InfoHash extracts the upper-cased hash named by the first xt parameter of
// uri, or "" when there is none.
func InfoHash(uri string) string {
	value := strings.TrimSpace(uri)
	if !IsMagnetURI(value) {
		return ""
	}
	return hashFromXT(first(parseParams(value[len(prefix):]), "xt"))
}

func NormalizeInfoHash(raw string) string {
	value := strings.TrimSpace(raw)
	if len(value) >= len("urn:btih:") && strings.EqualFold(value[:len("urn:btih:")], "urn:btih:") {
		value = value[len("urn:btih:"):]
	}
	return strings.ToUpper(strings.TrimSpace(value))
}

func Build(infoHash, name string, trackers []string) string {
	hash := NormalizeInfoHash(infoHash)
	if hash == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("magnet:?xt=urn:btih:")
	builder.WriteString(hash)
	if strings.TrimSpace(name) != "" {
		builder.WriteString("&dn=")
		builder.WriteString(url.QueryEscape(strings.TrimSpace(name)))
	}
	for _, tracker := range trackers {
		value := strings.TrimSpace(tracker)
		if value == "" {
			continue
		}
		builder.WriteString("&tr=")
		builder.WriteString(url.QueryEscape(value))
	}
	return builder.String()
}

// SameHash reports whether the magnet link and the standalone hash name the
// same torrent. Hex and base32 spellings of one v1 hash compare equal. An
// empty side never contradicts the other.
func SameHash(uri, hash string) bool {
	derived := InfoHash(uri)
	explicit := NormalizeInfoHash(hash)
	if derived == "" || explicit == "" || derived == explicit {
		return true
	}
	left, okLeft := canonicalHash(derived)
	right, okRight := canonicalHash(explicit)
	if !okLeft || !okRight {
		return false
	}
	return left == right
}

func canonicalHash(hash string) (metainfo.Hash, bool) {
	var out metainfo.Hash
	if len(hash) == 40 {
		if err := out.FromHexString(hash); err != nil {
			return metainfo.Hash{}, false
		}
		return out, true
	}
	parsed, err := metainfo.ParseMagnetUri("magnet:?xt=urn:btih:" + hash)
	if err != nil {
		return metainfo.Hash{}, false
	}
	return parsed.InfoHash, true
}

func hashFromXT(xt string) string {
	xt = strings.TrimSpace(xt)
	if xt == "" {
		return ""
	}
	if idx := strings.LastIndex(xt, ":"); idx >= 0 {
		xt = xt[idx+1:]
	}
	return strings.ToUpper(xt)
}

// parseParams decodes each key/value once, treating '+' as a space. Bad
// escapes keep their raw text instead of failing the whole link.
func parseParams(rawQuery string) map[string][]string {
	params := make(map[string][]string)
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key = strings.ToLower(decodeComponent(key))
		params[key] = append(params[key], decodeComponent(value))
	}
	return params
}

func decodeComponent(raw string) string {
	replaced := strings.ReplaceAll(raw, "+", " ")
	decoded, err := url.QueryUnescape(replaced)
	if err != nil {
		return replaced
	}
	return decoded
}

func first(params map[string][]string, key string) string {
	values := params[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
