package apibay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/magnet"
	"github.com/lovedemo/seedManage/internal/normalize"
	"github.com/lovedemo/seedManage/internal/providers/common"
)

const (
	ID              = "apibay"
	DefaultEndpoint = "https://apibay.org/q.php"

	emptyHash = "0000000000000000000000000000000000000000"
)

type Config struct {
	Endpoint string
	Trackers []string
	Client   *common.Client
}

type Provider struct {
	client   *common.Client
	endpoint string
	trackers []string
}

// apiItem mirrors apibay's q.php rows, where every field is a string.
type apiItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	InfoHash string          `json:"info_hash"`
	Size     normalize.Value `json:"size"`
	Seeders  normalize.Value `json:"seeders"`
	Leechers normalize.Value `json:"leechers"`
	Added    normalize.Value `json:"added"`
	Category string          `json:"category"`
}

func NewProvider(cfg Config) *Provider {
	client := cfg.Client
	if client == nil {
		client = common.NewClient(common.ClientConfig{})
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	trackers := cfg.Trackers
	if len(trackers) == 0 {
		trackers = append([]string(nil), common.BaseTrackers...)
	}
	return &Provider{
		client:   client,
		endpoint: endpoint,
		trackers: trackers,
	}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) Name() string        { return "The Pirate Bay (apibay.org)" }
func (p *Provider) Description() string { return "Searches the public apibay.org JSON API" }
func (p *Provider) Endpoint() string    { return p.endpoint }

func (p *Provider) Search(ctx context.Context, query string) ([]domain.ResourceDescriptor, error) {
	var raw json.RawMessage
	params := url.Values{"q": {strings.TrimSpace(query)}, "cat": {"0"}}
	if err := p.client.GetJSON(ctx, p.endpoint, params, &raw); err != nil {
		return nil, err
	}
	items, err := parseAPIItems(raw)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ResourceDescriptor, 0, len(items))
	for _, item := range items {
		rec, ok := p.toRecord(item)
		if !ok {
			continue
		}
		if result, ok := normalize.Descriptor(rec, ID); ok {
			results = append(results, result)
		}
	}
	return results, nil
}

func parseAPIItems(payload []byte) ([]apiItem, error) {
	var items []apiItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("%w: apibay expects an array of records: %v", domain.ErrRemoteShape, err)
	}
	return items, nil
}

// toRecord rejects rows without a name or hash, including the all-zero
// placeholder row apibay sends when nothing matched.
func (p *Provider) toRecord(item apiItem) (normalize.Record, bool) {
	name := strings.TrimSpace(item.Name)
	infoHash := magnet.NormalizeInfoHash(item.InfoHash)
	if name == "" || infoHash == "" || infoHash == emptyHash {
		return normalize.Record{}, false
	}
	if strings.Contains(strings.ToLower(name), "no results returned") {
		return normalize.Record{}, false
	}
	return normalize.Record{
		Title:    name,
		InfoHash: infoHash,
		Magnet:   magnet.Build(infoHash, name, p.trackers),
		Size:     item.Size,
		Seeders:  item.Seeders,
		Leechers: item.Leechers,
		Uploaded: item.Added,
		Category: categoryLabel(item.Category),
		Trackers: append([]string(nil), p.trackers...),
	}, true
}

var categoryGroups = map[byte]string{
	'1': "Audio",
	'2': "Video",
	'3': "Applications",
	'4': "Games",
	'5': "Porn",
	'6': "Other",
}

// categoryLabel maps apibay's numeric category (e.g. "207") onto its
// top-level group name.
func categoryLabel(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || code == "0" {
		return domain.UnknownCategory
	}
	if len(code) == 3 {
		if label, ok := categoryGroups[code[0]]; ok {
			return label
		}
	}
	return code
}
