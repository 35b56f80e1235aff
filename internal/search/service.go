package search

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/pagination"
	"github.com/lovedemo/seedManage/internal/registry"
)

// Recorder receives every finished outcome. Submit must not block; the
// service ignores whatever happens to the outcome afterwards.
type Recorder interface {
	Submit(outcome domain.SearchOutcome)
}

type Service struct {
	registry *registry.Registry
	logger   *slog.Logger
	pageSize int
	recorder Recorder
	now      func() time.Time

	healthMu sync.Mutex
	health   map[string]*adapterHealth
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPageSize sets the page size used when a request does not name one.
func WithPageSize(size int) ServiceOption {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = pagination.ClampPageSize(size)
		}
	}
}

func WithRecorder(recorder Recorder) ServiceOption {
	return func(s *Service) {
		s.recorder = recorder
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(reg *registry.Registry, opts ...ServiceOption) *Service {
	svc := &Service{
		registry: reg,
		logger:   slog.Default(),
		pageSize: pagination.DefaultPageSize,
		now:      time.Now,
		health:   make(map[string]*adapterHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) ListAdapters() domain.AdapterList {
	return domain.AdapterList{
		Adapters:       s.registry.List(),
		DefaultAdapter: s.registry.DefaultID(),
	}
}
