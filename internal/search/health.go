package search

import (
	"strings"
	"time"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/metrics"
)

// adapterHealth accumulates per-adapter call statistics. It only observes;
// routing decisions never consult it.
type adapterHealth struct {
	lastError     string
	lastSuccessAt time.Time
	lastFailureAt time.Time
	lastLatency   time.Duration
	lastTimeout   bool
	lastQuery     string
	lastEmpty     bool
	totalRequests int64
	totalFailures int64
	timeoutCount  int64
	fallbackCount int64
}

func (s *Service) healthState(id string) *adapterHealth {
	state := s.health[id]
	if state == nil {
		state = &adapterHealth{}
		s.health[id] = state
	}
	return state
}

func (s *Service) recordAdapterResult(adapterID, query string, err error, empty bool, latency time.Duration) {
	id := strings.ToLower(strings.TrimSpace(adapterID))
	if id == "" {
		return
	}
	now := s.now()

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	state := s.healthState(id)
	state.totalRequests++
	state.lastQuery = strings.TrimSpace(query)
	if latency > 0 {
		state.lastLatency = latency
		metrics.AdapterRequestDuration.WithLabelValues(id).Observe(latency.Seconds())
	}
	state.lastTimeout = isTimeoutLikeError(err)
	if state.lastTimeout {
		state.timeoutCount++
	}

	if err == nil {
		state.lastError = ""
		state.lastEmpty = empty
		state.lastSuccessAt = now
		status := "ok"
		if empty {
			status = "empty"
		}
		metrics.AdapterRequestsTotal.WithLabelValues(id, status).Inc()
		metrics.AdapterHealthy.WithLabelValues(id).Set(1)
		return
	}

	state.totalFailures++
	state.lastFailureAt = now
	state.lastError = err.Error()
	state.lastEmpty = false

	status := "error"
	if state.lastTimeout {
		status = "timeout"
	}
	metrics.AdapterRequestsTotal.WithLabelValues(id, status).Inc()
	metrics.AdapterHealthy.WithLabelValues(id).Set(0)
}

func (s *Service) recordFallback(adapterID string) {
	id := strings.ToLower(strings.TrimSpace(adapterID))
	if id == "" {
		return
	}
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.healthState(id).fallbackCount++
}

// AdapterDiagnostics reports call statistics for every registered adapter,
// in the same order as ListAdapters.
func (s *Service) AdapterDiagnostics() []domain.AdapterDiagnostics {
	infos := s.registry.List()

	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	items := make([]domain.AdapterDiagnostics, 0, len(infos))
	for _, info := range infos {
		item := domain.AdapterDiagnostics{
			ID:   info.ID,
			Name: info.Name,
			Role: s.registry.Role(info.ID).String(),
		}
		if state := s.health[info.ID]; state != nil {
			item.LastError = state.lastError
			if !state.lastSuccessAt.IsZero() {
				lastSuccessAt := state.lastSuccessAt
				item.LastSuccessAt = &lastSuccessAt
			}
			if !state.lastFailureAt.IsZero() {
				lastFailureAt := state.lastFailureAt
				item.LastFailureAt = &lastFailureAt
			}
			item.LastLatencyMS = state.lastLatency.Milliseconds()
			item.LastTimeout = state.lastTimeout
			item.LastQuery = state.lastQuery
			item.LastEmpty = state.lastEmpty
			item.TotalRequests = state.totalRequests
			item.TotalFailures = state.totalFailures
			item.TimeoutCount = state.timeoutCount
			item.FallbackCount = state.fallbackCount
		}
		items = append(items, item)
	}
	return items
}
