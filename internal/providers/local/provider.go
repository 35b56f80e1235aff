package local

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/normalize"
)

const ID = "sample"

type entry struct {
	item  domain.ResourceDescriptor
	title string // case-folded
}

// Dataset is the lazily loaded, read-only record set behind the local
// adapter. The first caller triggers the load; concurrent callers wait for
// the same result.
type Dataset struct {
	loader Loader
	logger *slog.Logger
	load   func() ([]entry, error)
}

func NewDataset(loader Loader, logger *slog.Logger) *Dataset {
	if loader == nil {
		loader = EmbeddedLoader{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dataset{loader: loader, logger: logger}
	d.load = sync.OnceValues(d.build)
	return d
}

func (d *Dataset) build() ([]entry, error) {
	records, err := d.loader.Load(context.Background())
	if err != nil {
		d.logger.Warn("sample dataset unavailable", slog.String("error", err.Error()))
		return nil, err
	}
	fold := cases.Fold()
	items := normalize.Descriptors(records, ID)
	entries := make([]entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, entry{item: item, title: fold.String(item.Title)})
	}
	d.logger.Debug("sample dataset loaded", slog.Int("records", len(entries)))
	return entries, nil
}

// Len reports how many records loaded. A failed load counts as empty.
func (d *Dataset) Len() int {
	entries, _ := d.load()
	return len(entries)
}

// Err returns the cached load error, if any.
func (d *Dataset) Err() error {
	_, err := d.load()
	return err
}

// Match returns copies of every record whose title contains query, compared
// case-insensitively, in dataset order. A cancelled ctx stops the scan and
// returns what matched so far.
func (d *Dataset) Match(ctx context.Context, query string) []domain.ResourceDescriptor {
	entries, _ := d.load()
	needle := cases.Fold().String(strings.TrimSpace(query))
	out := make([]domain.ResourceDescriptor, 0)
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if strings.Contains(e.title, needle) {
			item := e.item
			item.Trackers = append([]string{}, e.item.Trackers...)
			out = append(out, item)
		}
	}
	return out
}

type Config struct {
	Dataset *Dataset
}

// Provider serves the local dataset as a search adapter. It never fails.
type Provider struct {
	dataset *Dataset
}

func NewProvider(cfg Config) *Provider {
	dataset := cfg.Dataset
	if dataset == nil {
		dataset = NewDataset(EmbeddedLoader{}, nil)
	}
	return &Provider{dataset: dataset}
}

func (p *Provider) ID() string          { return ID }
func (p *Provider) Name() string        { return "Local sample data" }
func (p *Provider) Description() string { return "Matches titles in the bundled sample dataset" }
func (p *Provider) Endpoint() string    { return domain.LocalEndpoint }

func (p *Provider) Search(ctx context.Context, query string) ([]domain.ResourceDescriptor, error) {
	return p.dataset.Match(ctx, query), nil
}
