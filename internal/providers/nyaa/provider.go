package nyaa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/magnet"
	"github.com/lovedemo/seedManage/internal/normalize"
	"github.com/lovedemo/seedManage/internal/providers/common"
	"github.com/lovedemo/seedManage/internal/registry"
)

const (
	ID              = "nyaa"
	DefaultEndpoint = "https://nyaaapi.onrender.com/nyaa"

	// PerPage is the fixed page length of the upstream listing. A full page
	// is the only next-page signal the API gives.
	PerPage = 75
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

type apiItem struct {
	Name     string          `json:"name"`
	InfoHash string          `json:"info_hash"`
	Magnet   string          `json:"magnet"`
	Seeders  normalize.Value `json:"seeders"`
	Leechers normalize.Value `json:"leechers"`
	Size     normalize.Value `json:"size"`
	Date     normalize.Value `json:"date"`
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
	return &Provider{client: client, endpoint: endpoint, trackers: trackers}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) Name() string        { return "Nyaa" }
func (p *Provider) Description() string { return "Searches nyaa.si through the nyaaapi JSON mirror" }
func (p *Provider) Endpoint() string    { return p.endpoint }

func (p *Provider) Search(ctx context.Context, query string) ([]domain.ResourceDescriptor, error) {
	page, err := p.SearchPage(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (p *Provider) SearchPage(ctx context.Context, query string, page int) (registry.PageResult, error) {
	if page < 1 {
		page = 1
	}
	var raw json.RawMessage
	params := url.Values{"q": {strings.TrimSpace(query)}, "page": {strconv.Itoa(page)}}
	if err := p.client.GetJSON(ctx, p.endpoint, params, &raw); err != nil {
		return registry.PageResult{}, err
	}
	var items []apiItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return registry.PageResult{}, fmt.Errorf("%w: nyaa expects an array of records: %v", domain.ErrRemoteShape, err)
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
	return registry.PageResult{
		Items:    results,
		HasNext:  len(items) >= PerPage,
		PageSize: PerPage,
	}, nil
}

func (p *Provider) toRecord(item apiItem) (normalize.Record, bool) {
	name := common.CleanHTMLText(item.Name)
	uri := strings.TrimSpace(item.Magnet)
	hash := magnet.NormalizeInfoHash(item.InfoHash)
	if name == "" || (uri == "" && hash == "") {
		return normalize.Record{}, false
	}
	if uri == "" {
		uri = magnet.Build(hash, name, p.trackers)
	}
	return normalize.Record{
		Title:    name,
		InfoHash: hash,
		Magnet:   uri,
		Size:     item.Size,
		Seeders:  item.Seeders,
		Leechers: item.Leechers,
		Uploaded: item.Date,
		Category: strings.TrimSpace(item.Category),
		Trackers: append([]string(nil), p.trackers...),
	}, true
}
