package brave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/brave-search/internal/metrics"
	"github.com/kitbuilder587/brave-search/internal/pacer"
	"github.com/kitbuilder587/brave-search/internal/search"
)

const (
	tokenHeader     = "X-Subscription-Token"
	requestIDHeader = "X-Request-Id"

	// сколько тела ответа класть в UpstreamError
	maxErrorBody = 512
)

type Config struct {
	APIKey  string
	Timeout time.Duration
}

// Client - клиент одного варианта эндпоинта. Все клиенты делят один Pacer.
type Client struct {
	endpoint search.Endpoint
	apiKey   string
	client   *http.Client
	pacer    *pacer.Pacer
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

var _ search.Client = (*Client)(nil)

func New(endpoint search.Endpoint, p *pacer.Pacer, cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
		pacer:    p,
		logger:   logger.With(zap.String("endpoint", string(endpoint.Kind))),
		now:      time.Now,
	}
}

// NewClients создает по клиенту на каждый эндпоинт с общим pacer
func NewClients(endpoints []search.Endpoint, p *pacer.Pacer, cfg Config, logger *zap.Logger) []*Client {
	clients := make([]*Client, 0, len(endpoints))
	for _, ep := range endpoints {
		clients = append(clients, New(ep, p, cfg, logger))
	}
	return clients
}

func (c *Client) WithMetrics(m *metrics.Metrics) *Client {
	c.metrics = m
	return c
}

func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

func (c *Client) Endpoint() search.Endpoint {
	return c.endpoint
}

func (c *Client) Search(ctx context.Context, req search.Request) (*search.Results, error) {
	start := time.Now()

	req, body, hdr, err := c.fetch(ctx, req)
	if err != nil {
		c.record(statusOf(err), start)
		return nil, err
	}

	env, err := DecodeEnvelope(body)
	if err != nil {
		derr := &search.DecodeError{Endpoint: c.endpoint.Kind, Err: err}
		c.record("decode_error", start)
		c.logger.Warn("unrecognized response shape",
			zap.Error(err),
			zap.Int("body_len", len(body)),
		)
		return nil, derr
	}

	res := env.ToResults(req, correlationID(hdr), c.now())
	res.Endpoint = c.endpoint.Kind

	c.record("success", start)
	if c.metrics != nil {
		c.metrics.RecordResults(string(c.endpoint.Kind), res.Len())
	}

	c.logger.Debug("search completed",
		zap.String("query", req.Query),
		zap.Int("results", res.Len()),
		zap.String("correlation_id", res.CorrelationID),
		zap.Duration("took", time.Since(start)),
	)

	return res, nil
}

// SearchRaw возвращает тело ответа без разбора
func (c *Client) SearchRaw(ctx context.Context, req search.Request) (string, error) {
	start := time.Now()

	_, body, _, err := c.fetch(ctx, req)
	if err != nil {
		c.record(statusOf(err), start)
		return "", err
	}

	c.record("success", start)
	return string(body), nil
}

type response struct {
	body   []byte
	header http.Header
}

func (c *Client) fetch(ctx context.Context, req search.Request) (search.Request, []byte, http.Header, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return req, nil, nil, err
	}

	reqURL, err := c.buildURL(req)
	if err != nil {
		return req, nil, nil, err
	}

	if c.metrics != nil {
		c.metrics.IncRequestsInFlight()
		defer c.metrics.DecRequestsInFlight()
	}

	resp, err := pacer.Do(ctx, c.pacer, func(ctx context.Context) (*response, error) {
		return c.do(ctx, reqURL)
	})
	if err != nil {
		return req, nil, nil, err
	}

	return req, resp.body, resp.header, nil
}

func (c *Client) buildURL(req search.Request) (string, error) {
	u, err := url.Parse(c.endpoint.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	params := u.Query()
	params.Set("q", req.Query)
	params.Set("count", strconv.Itoa(req.Count))
	params.Set("offset", strconv.Itoa(req.Offset))
	u.RawQuery = params.Encode()

	return u.String(), nil
}

func (c *Client) do(ctx context.Context, reqURL string) (*response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(tokenHeader, c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("search request failed",
			zap.Int("status", resp.StatusCode),
		)
		return nil, &search.UpstreamError{
			Endpoint:   c.endpoint.Kind,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(body)), maxErrorBody),
		}
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, &search.UpstreamError{
			Endpoint:   c.endpoint.Kind,
			StatusCode: resp.StatusCode,
		}
	}

	return &response{body: body, header: resp.Header}, nil
}

func (c *Client) record(status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordSearchRequest(string(c.endpoint.Kind), status, time.Since(start))
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, search.ErrUpstream):
		return "upstream_error"
	case errors.Is(err, search.ErrDecode):
		return "decode_error"
	case errors.Is(err, search.ErrEmptyQuery), errors.Is(err, search.ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func correlationID(hdr http.Header) string {
	if id := hdr.Get(requestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

// truncate режет по границе руны, не длиннее n байт
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
