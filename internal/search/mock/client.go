package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/brave-search/internal/search"
)

type Client struct {
	Results []search.Result
	Raw     string
	Error   error
	Delay   time.Duration

	CallCount   int
	LastRequest search.Request
	AllRequests []search.Request

	endpoint search.Endpoint
	mu       sync.Mutex
}

var _ search.Client = (*Client)(nil)

func New(kind search.Kind) *Client {
	ep, err := search.DefaultEndpoint(kind)
	if err != nil {
		ep = search.Endpoint{Kind: kind, DisplayName: string(kind)}
	}
	return &Client{endpoint: ep}
}

func (c *Client) WithResults(results []search.Result) *Client {
	c.Results = results
	return c
}

func (c *Client) WithRaw(raw string) *Client {
	c.Raw = raw
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) Endpoint() search.Endpoint {
	return c.endpoint
}

func (c *Client) Search(ctx context.Context, req search.Request) (*search.Results, error) {
	if err := c.call(ctx, req); err != nil {
		return nil, err
	}

	c.mu.Lock()
	results := append([]search.Result(nil), c.Results...)
	c.mu.Unlock()

	return &search.Results{
		Request:       req.Normalize(),
		Endpoint:      c.endpoint.Kind,
		OriginalQuery: req.Query,
		Results:       results,
		Timestamp:     time.Now(),
		CorrelationID: "mock",
	}, nil
}

func (c *Client) SearchRaw(ctx context.Context, req search.Request) (string, error) {
	if err := c.call(ctx, req); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Raw, nil
}

func (c *Client) call(ctx context.Context, req search.Request) error {
	c.mu.Lock()
	c.CallCount++
	c.LastRequest = req
	c.AllRequests = append(c.AllRequests, req)
	delay := c.Delay
	err := c.Error
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return err
}

func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCount
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastRequest = search.Request{}
	c.AllRequests = nil
}
