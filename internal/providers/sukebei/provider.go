package sukebei

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/normalize"
	"github.com/lovedemo/seedManage/internal/providers/common"
)

const (
	ID              = "sukebei"
	DefaultEndpoint = "https://nyaaapi.onrender.com/sukebei"
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

// listing is the envelope returned by the sukebei mirror. Sizes arrive as
// display strings ("704.9 MiB").
type listing struct {
	Count *int      `json:"count"`
	Data  []apiItem `json:"data"`
}

type apiItem struct {
	Title    string          `json:"title"`
	Magnet   string          `json:"magnet"`
	Seeders  normalize.Value `json:"seeders"`
	Leechers normalize.Value `json:"leechers"`
	Size     string          `json:"size"`
	Time     normalize.Value `json:"time"`
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
func (p *Provider) Name() string        { return "Sukebei" }
func (p *Provider) Description() string { return "Searches sukebei.nyaa.si through the nyaaapi JSON mirror" }
func (p *Provider) Endpoint() string    { return p.endpoint }

func (p *Provider) Search(ctx context.Context, query string) ([]domain.ResourceDescriptor, error) {
	var raw json.RawMessage
	params := url.Values{"q": {strings.TrimSpace(query)}, "page": {"1"}}
	if err := p.client.GetJSON(ctx, p.endpoint, params, &raw); err != nil {
		return nil, err
	}
	payload, err := parseListing(raw)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ResourceDescriptor, 0, len(payload.Data))
	for _, item := range payload.Data {
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

func parseListing(payload []byte) (listing, error) {
	var out listing
	if err := json.Unmarshal(payload, &out); err != nil {
		return listing{}, fmt.Errorf("%w: sukebei expects an object with data: %v", domain.ErrRemoteShape, err)
	}
	if out.Count == nil && out.Data == nil {
		return listing{}, fmt.Errorf("%w: sukebei payload has neither count nor data", domain.ErrRemoteShape)
	}
	return out, nil
}

// toRecord keeps only rows that carry both a title and a magnet.
func (p *Provider) toRecord(item apiItem) (normalize.Record, bool) {
	title := common.CleanHTMLText(item.Title)
	uri := strings.TrimSpace(item.Magnet)
	if title == "" || uri == "" {
		return normalize.Record{}, false
	}

	rec := normalize.Record{
		Title:     title,
		Magnet:    uri,
		SizeLabel: strings.TrimSpace(item.Size),
		Seeders:   item.Seeders,
		Leechers:  item.Leechers,
		Uploaded:  item.Time,
		Category:  strings.TrimSpace(item.Category),
		Trackers:  append([]string(nil), p.trackers...),
	}
	if bytes := common.ParseHumanSize(item.Size); bytes > 0 {
		rec.Size = normalize.IntValue(bytes)
	}
	return rec, true
}
