package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/brave-search/internal/domain"
	"github.com/kitbuilder587/brave-search/internal/metrics"
	"github.com/kitbuilder587/brave-search/internal/repository"
	"github.com/kitbuilder587/brave-search/internal/search"
)

type SearchService interface {
	Search(ctx context.Context, kind search.Kind, req search.Request) (*search.Results, error)
	SearchRaw(ctx context.Context, kind search.Kind, req search.Request) (string, error)
	SearchAll(ctx context.Context, req search.Request) ([]*search.Results, error)
	SearchMany(ctx context.Context, kind search.Kind, queries []string, count int) ([]search.Result, error)
	Endpoints() []search.Endpoint
}

type SearchServiceDeps struct {
	Clients []search.Client
	History repository.HistoryRepository
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type searchService struct {
	clients map[search.Kind]search.Client
	order   []search.Kind
	history repository.HistoryRepository
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewSearchService(deps SearchServiceDeps) (SearchService, error) {
	if len(deps.Clients) == 0 {
		return nil, domain.ErrNoEndpoints
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &searchService{
		clients: make(map[search.Kind]search.Client, len(deps.Clients)),
		history: deps.History,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}
	for _, c := range deps.Clients {
		kind := c.Endpoint().Kind
		if _, dup := s.clients[kind]; dup {
			return nil, fmt.Errorf("duplicate client for endpoint %q", kind)
		}
		s.clients[kind] = c
		s.order = append(s.order, kind)
	}

	return s, nil
}

func (s *searchService) Endpoints() []search.Endpoint {
	out := make([]search.Endpoint, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.clients[k].Endpoint())
	}
	return out
}

func (s *searchService) client(kind search.Kind) (search.Client, error) {
	c, ok := s.clients[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not enabled", search.ErrUnknownKind, kind)
	}
	return c, nil
}

func (s *searchService) Search(ctx context.Context, kind search.Kind, req search.Request) (*search.Results, error) {
	c, err := s.client(kind)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	res, err := c.Search(ctx, req)
	s.recordHistory(ctx, kind, req, res.Len(), correlationOf(res), err, started)
	return res, err
}

func (s *searchService) SearchRaw(ctx context.Context, kind search.Kind, req search.Request) (string, error) {
	c, err := s.client(kind)
	if err != nil {
		return "", err
	}

	started := time.Now()
	raw, err := c.SearchRaw(ctx, req)
	s.recordHistory(ctx, kind, req, 0, "", err, started)
	return raw, err
}

// SearchAll - один запрос по всем включенным эндпоинтам.
// Порядок результатов совпадает с Endpoints(); упавшие эндпоинты пропускаются.
func (s *searchService) SearchAll(ctx context.Context, req search.Request) ([]*search.Results, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	// иначе невалидный запрос упадет на каждом эндпоинте и спрячется за ErrAllSearchesFailed
	if err := req.Normalize().Validate(); err != nil {
		return nil, err
	}

	out := make([]*search.Results, len(s.order))
	g, ctx := errgroup.WithContext(ctx)

	for i, kind := range s.order {
		i, kind := i, kind
		g.Go(func() error {
			res, err := s.Search(ctx, kind, req)
			if err != nil {
				s.logger.Warn("endpoint search failed",
					zap.Error(err),
					zap.String("endpoint", string(kind)),
					zap.String("query", req.Query),
				)
				return nil
			}
			out[i] = res
			return nil
		})
	}
	g.Wait()

	var results []*search.Results
	for _, r := range out {
		if r != nil {
			results = append(results, r)
		}
	}

	if len(results) == 0 {
		s.recordFanout("endpoints", "failed")
		return nil, domain.ErrAllSearchesFailed
	}
	s.recordFanout("endpoints", "success")
	return results, nil
}

// SearchMany - несколько запросов на одном эндпоинте, результаты склеиваются
// без дублей по URL в порядке запросов.
func (s *searchService) SearchMany(ctx context.Context, kind search.Kind, queries []string, count int) ([]search.Result, error) {
	if _, err := s.client(kind); err != nil {
		return nil, err
	}

	queries = cleanQueries(queries)
	if len(queries) == 0 {
		return nil, domain.ErrEmptyQuery
	}
	if err := (search.Request{Query: queries[0], Count: count}).Normalize().Validate(); err != nil {
		return nil, err
	}

	perQuery := make([][]search.Result, len(queries))
	var mu sync.Mutex
	var errs []error

	g, ctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			res, err := s.Search(ctx, kind, search.Request{Query: q, Count: count})
			if err != nil {
				s.logger.Warn("search query failed",
					zap.Error(err),
					zap.String("query", q),
				)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			perQuery[i] = res.Results
			return nil
		})
	}
	g.Wait()

	if len(errs) == len(queries) {
		s.recordFanout("queries", "failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrAllSearchesFailed, errors.Join(errs...))
	}

	seen := make(map[string]bool)
	var merged []search.Result
	for _, results := range perQuery {
		for _, r := range results {
			if !seen[r.URL] {
				seen[r.URL] = true
				merged = append(merged, r)
			}
		}
	}

	s.recordFanout("queries", "success")
	return merged, nil
}

func (s *searchService) recordHistory(ctx context.Context, kind search.Kind, req search.Request, n int, correlationID string, searchErr error, started time.Time) {
	if s.history == nil {
		return
	}
	if errors.Is(searchErr, search.ErrEmptyQuery) || errors.Is(searchErr, search.ErrInvalidRequest) {
		// до провайдера не дошли
		return
	}

	req = req.Normalize()
	rec := &domain.SearchRecord{
		Endpoint:      string(kind),
		Query:         req.Query,
		Count:         req.Count,
		Offset:        req.Offset,
		ResultCount:   n,
		Status:        statusOf(searchErr),
		CorrelationID: correlationID,
		StartedAt:     started,
		FinishedAt:    time.Now(),
	}
	if searchErr != nil {
		rec.Error = searchErr.Error()
	}

	// история не должна ломать поиск, пишем даже если ctx уже отменен
	if err := s.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warn("failed to record search history",
			zap.Error(err),
			zap.String("endpoint", rec.Endpoint),
		)
	}
}

func (s *searchService) recordFanout(mode, status string) {
	if s.metrics != nil {
		s.metrics.RecordFanout(mode, status)
	}
}

func statusOf(err error) domain.SearchStatus {
	switch {
	case err == nil:
		return domain.StatusSuccess
	case errors.Is(err, search.ErrUpstream):
		return domain.StatusUpstreamError
	case errors.Is(err, search.ErrDecode):
		return domain.StatusDecodeError
	default:
		return domain.StatusFailed
	}
}

func correlationOf(res *search.Results) string {
	if res == nil {
		return ""
	}
	return res.CorrelationID
}

func cleanQueries(queries []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, q := range queries {
		q = strings.Join(strings.Fields(q), " ")
		key := strings.ToLower(q)
		if q == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}
