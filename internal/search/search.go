package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/magnet"
	"github.com/lovedemo/seedManage/internal/metrics"
	"github.com/lovedemo/seedManage/internal/pagination"
	"github.com/lovedemo/seedManage/internal/registry"
)

const magnetAdapterName = "Magnet link parser"

// attempt is the result of one adapter call, already paged.
type attempt struct {
	view  domain.PageView
	count int
	err   error
}

func (a attempt) empty() bool {
	return a.err == nil && a.count == 0
}

func (a attempt) ok() bool {
	return a.err == nil && a.count > 0
}

// Search answers one request. Only ErrEmptyQuery and ErrInvalidMagnetURI are
// returned as errors; adapter failures are reported inside the outcome.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchOutcome, error) {
	started := s.now()
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.SearchOutcome{}, domain.ErrEmptyQuery
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	var outcome domain.SearchOutcome
	if magnet.IsMagnetURI(query) {
		item, err := magnet.Parse(query)
		if err != nil {
			metrics.MagnetParsesTotal.WithLabelValues("invalid").Inc()
			return domain.SearchOutcome{}, err
		}
		metrics.MagnetParsesTotal.WithLabelValues("ok").Inc()
		view := pagination.Paginate([]domain.ResourceDescriptor{item}, 1, pageSize)
		outcome = domain.SearchOutcome{
			Mode:        domain.ModeMagnet,
			Query:       query,
			Items:       view.Items,
			AdapterUsed: domain.MagnetSource,
			AdapterName: magnetAdapterName,
			ResultCount: 1,
			PageInfo:    view.PageInfo,
		}
	} else {
		outcome = s.searchAdapters(ctx, query, req, pageSize)
	}

	outcome.ElapsedMS = s.now().Sub(started).Milliseconds()
	metrics.SearchesTotal.WithLabelValues(string(outcome.Mode)).Inc()
	if s.recorder != nil {
		s.recorder.Submit(outcome)
	}
	return outcome, nil
}

func (s *Service) searchAdapters(ctx context.Context, query string, req domain.SearchRequest, pageSize int) domain.SearchOutcome {
	primary, substituted := s.registry.Resolve(req.AdapterID)
	outcome := domain.SearchOutcome{
		Mode:               domain.ModeSearch,
		Query:              query,
		AdapterUsed:        primary.ID(),
		AdapterName:        primary.Name(),
		AdapterDescription: primary.Description(),
		AdapterEndpoint:    primary.Endpoint(),
	}
	if substituted {
		outcome.RequestedAdapter = strings.TrimSpace(req.AdapterID)
		s.logger.Warn("unknown adapter requested, using default",
			slog.String("requested", outcome.RequestedAdapter),
			slog.String("adapter", primary.ID()),
		)
	}

	first := s.run(ctx, primary, query, req.Page, pageSize)
	if first.ok() {
		return finish(outcome, first)
	}
	if first.err != nil {
		outcome.PrimaryError = first.err.Error()
		s.logger.Warn("primary adapter failed",
			slog.String("adapter", primary.ID()),
			slog.String("error", first.err.Error()),
		)
	}

	fallback := s.registry.Fallback()
	if fallback == nil || fallback.ID() == primary.ID() {
		if outcome.PrimaryError == "" {
			outcome.PrimaryError = domain.ErrNoResults.Error()
		}
		outcome.FallbackError = domain.ErrAllSourcesExhausted.Error()
		return finish(outcome, first)
	}

	reason := "error"
	if first.empty() {
		reason = "empty"
	}
	second := s.run(ctx, fallback, query, req.Page, pageSize)
	s.recordFallback(fallback.ID())
	outcome.FallbackAdapterID = fallback.ID()
	outcome.FallbackAdapter = fallback.Name()

	if second.ok() {
		metrics.FallbacksTotal.WithLabelValues(reason, "ok").Inc()
		s.logger.Info("fallback adapter served results",
			slog.String("adapter", primary.ID()),
			slog.String("fallback", fallback.ID()),
			slog.String("reason", reason),
			slog.Int("results", second.count),
		)
		outcome.FallbackUsed = true
		return finish(outcome, second)
	}

	metrics.FallbacksTotal.WithLabelValues(reason, "exhausted").Inc()
	if outcome.PrimaryError == "" {
		outcome.PrimaryError = domain.ErrNoResults.Error()
	}
	if second.err != nil {
		outcome.FallbackError = second.err.Error()
	} else {
		outcome.FallbackError = domain.ErrAllSourcesExhausted.Error()
	}
	// Keep the primary's (empty) page flags so navigation stays tied to the
	// adapter the caller asked for.
	return finish(outcome, first)
}

func finish(outcome domain.SearchOutcome, a attempt) domain.SearchOutcome {
	outcome.Items = a.view.Items
	outcome.PageInfo = a.view.PageInfo
	outcome.ResultCount = a.count
	if a.err != nil {
		outcome.Items = []domain.ResourceDescriptor{}
		outcome.ResultCount = 0
	}
	return outcome
}

// run calls one adapter and pages its output. Paged adapters are asked for
// the requested page directly; everything else is paged locally.
func (s *Service) run(ctx context.Context, adapter registry.Adapter, query string, page, pageSize int) attempt {
	page = pagination.ClampPage(page)
	startedAt := s.now()

	var (
		result attempt
		err    error
	)
	if paged, ok := adapter.(registry.PagedAdapter); ok {
		var res registry.PageResult
		err = safeCall(adapter.ID(), func() error {
			var callErr error
			res, callErr = paged.SearchPage(ctx, query, page)
			return callErr
		})
		size := res.PageSize
		if size <= 0 {
			size = pageSize
		}
		result.view = pagination.PassThrough(res.Items, page, size, res.HasNext)
		result.count = len(result.view.Items)
	} else {
		var items []domain.ResourceDescriptor
		err = safeCall(adapter.ID(), func() error {
			var callErr error
			items, callErr = adapter.Search(ctx, query)
			return callErr
		})
		result.view = pagination.Paginate(items, page, pageSize)
		result.count = len(items)
	}
	result.err = err
	if err != nil {
		result.view = pagination.Paginate(nil, page, pageSize)
		result.count = 0
	}

	s.recordAdapterResult(adapter.ID(), query, err, result.count == 0, s.now().Sub(startedAt))
	return result
}

// safeCall turns an adapter panic into an error so it is handled like any
// other adapter failure.
func safeCall(adapterID string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("adapter %s panicked: %v", adapterID, rec)
		}
	}()
	return fn()
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, domain.ErrRemoteTimeout) || errors.Is(err, context.DeadlineExceeded)
}
