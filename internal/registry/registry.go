package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lovedemo/seedManage/internal/domain"
)

// Adapter is one named search source.
type Adapter interface {
	ID() string
	Name() string
	Description() string
	Endpoint() string
	Search(ctx context.Context, query string) ([]domain.ResourceDescriptor, error)
}

// PageResult is one page fetched by an adapter that pages remotely. HasNext
// is the adapter's own signal; no total is known.
type PageResult struct {
	Items    []domain.ResourceDescriptor
	HasNext  bool
	PageSize int
}

// PagedAdapter is implemented by adapters whose upstream has a paging
// primitive. The orchestrator prefers SearchPage when it is available.
type PagedAdapter interface {
	Adapter
	SearchPage(ctx context.Context, query string, page int) (PageResult, error)
}

var (
	ErrNoAdapters        = errors.New("no adapters configured")
	ErrDuplicateAdapter  = errors.New("duplicate adapter id")
	ErrFallbackIsDefault = errors.New("fallback adapter must differ from the default adapter")
)

type entry struct {
	adapter Adapter
	role    domain.AdapterRole
}

// Registry is the immutable, ordered set of configured adapters.
type Registry struct {
	order      []string
	entries    map[string]entry
	defaultID  string
	fallbackID string
}

// New validates the adapter set. An empty defaultID selects the first
// adapter; an empty fallbackID means no fallback.
func New(adapters []Adapter, defaultID, fallbackID string) (*Registry, error) {
	r := &Registry{entries: make(map[string]entry, len(adapters))}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		id := normalizeID(adapter.ID())
		if id == "" {
			return nil, fmt.Errorf("adapter %q: empty id", adapter.Name())
		}
		if _, exists := r.entries[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAdapter, id)
		}
		r.entries[id] = entry{adapter: adapter, role: domain.RoleNone}
		r.order = append(r.order, id)
	}
	if len(r.order) == 0 {
		return nil, ErrNoAdapters
	}

	defaultID = normalizeID(defaultID)
	if defaultID == "" {
		defaultID = r.order[0]
	}
	if _, ok := r.entries[defaultID]; !ok {
		return nil, fmt.Errorf("default adapter %q: %w", defaultID, domain.ErrUnknownAdapter)
	}
	fallbackID = normalizeID(fallbackID)
	if fallbackID != "" {
		if _, ok := r.entries[fallbackID]; !ok {
			return nil, fmt.Errorf("fallback adapter %q: %w", fallbackID, domain.ErrUnknownAdapter)
		}
		if fallbackID == defaultID {
			return nil, fmt.Errorf("%w: %s", ErrFallbackIsDefault, fallbackID)
		}
	}

	r.setRole(defaultID, domain.RoleDefault)
	r.defaultID = defaultID
	if fallbackID != "" {
		r.setRole(fallbackID, domain.RoleFallback)
		r.fallbackID = fallbackID
	}
	return r, nil
}

func (r *Registry) setRole(id string, role domain.AdapterRole) {
	e := r.entries[id]
	e.role = role
	r.entries[id] = e
}

func (r *Registry) Get(id string) (Adapter, bool) {
	e, ok := r.entries[normalizeID(id)]
	if !ok {
		return nil, false
	}
	return e.adapter, true
}

// Resolve returns the adapter for id, substituting the default for an empty
// or unknown id. substituted is true only for a non-empty unknown id.
func (r *Registry) Resolve(id string) (adapter Adapter, substituted bool) {
	key := normalizeID(id)
	if key == "" {
		return r.Default(), false
	}
	if e, ok := r.entries[key]; ok {
		return e.adapter, false
	}
	return r.Default(), true
}

func (r *Registry) Default() Adapter {
	return r.entries[r.defaultID].adapter
}

func (r *Registry) DefaultID() string {
	return r.defaultID
}

// Fallback returns the fallback adapter, or nil when none is configured.
func (r *Registry) Fallback() Adapter {
	if r.fallbackID == "" {
		return nil
	}
	return r.entries[r.fallbackID].adapter
}

func (r *Registry) Role(id string) domain.AdapterRole {
	return r.entries[normalizeID(id)].role
}

func (r *Registry) IsFallback(id string) bool {
	return r.fallbackID != "" && normalizeID(id) == r.fallbackID
}

// Adapters returns adapters in registration order.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].adapter)
	}
	return out
}

// List describes every adapter, default first, the rest in registration
// order.
func (r *Registry) List() []domain.AdapterInfo {
	items := make([]domain.AdapterInfo, 0, len(r.order))
	items = append(items, r.info(r.defaultID))
	for _, id := range r.order {
		if id == r.defaultID {
			continue
		}
		items = append(items, r.info(id))
	}
	return items
}

func (r *Registry) info(id string) domain.AdapterInfo {
	e := r.entries[id]
	_, paged := e.adapter.(PagedAdapter)
	return domain.AdapterInfo{
		ID:          id,
		Name:        e.adapter.Name(),
		Description: e.adapter.Description(),
		Endpoint:    e.adapter.Endpoint(),
		Default:     e.role == domain.RoleDefault,
		Fallback:    e.role == domain.RoleFallback,
		Paged:       paged,
	}
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
