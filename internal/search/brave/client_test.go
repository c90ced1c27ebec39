package brave

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kitbuilder587/brave-search/internal/metrics"
	"github.com/kitbuilder587/brave-search/internal/pacer"
	"github.com/kitbuilder587/brave-search/internal/search"
)

const webBody = `{"web":{"results":[{"title":"A","url":"http://x","description":"d"}]},"query":{"original":"q"}}`

func newTestClient(t *testing.T, kind search.Kind, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	ep, err := search.DefaultEndpoint(kind)
	if err != nil {
		t.Fatal(err)
	}

	p := pacer.New(pacer.Config{MinInterval: 10 * time.Millisecond})
	client := New(ep.WithBaseURL(server.URL), p, Config{
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, zap.NewNop())

	return client, server
}

func TestClient_Search_RequestShape(t *testing.T) {
	var got *http.Request

	client, _ := newTestClient(t, search.KindWeb, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Write([]byte(webBody))
	})

	_, err := client.Search(context.Background(), search.Request{Query: "best hotels", Offset: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if got.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", got.Method)
	}
	if v := got.Header.Get("X-Subscription-Token"); v != "test-key" {
		t.Errorf("token header = %q, want test-key", v)
	}
	if v := got.Header.Get("Accept"); v != "application/json" {
		t.Errorf("Accept = %q, want application/json", v)
	}

	q := got.URL.Query()
	if q.Get("q") != "best hotels" {
		t.Errorf("q = %q", q.Get("q"))
	}
	if q.Get("count") != "10" {
		t.Errorf("count = %q, want default 10", q.Get("count"))
	}
	if q.Get("offset") != "2" {
		t.Errorf("offset = %q, want 2", q.Get("offset"))
	}
}

func TestClient_Search(t *testing.T) {
	tests := []struct {
		name       string
		kind       search.Kind
		statusCode int
		body       string
		wantErr    error
		wantTitles []string
		wantQuery  string
	}{
		{
			name:       "web envelope",
			kind:       search.KindWeb,
			statusCode: http.StatusOK,
			body:       webBody,
			wantTitles: []string{"A"},
			wantQuery:  "q",
		},
		{
			name:       "news flat envelope",
			kind:       search.KindNews,
			statusCode: http.StatusOK,
			body:       `{"results":[{"title":"B","url":"http://y","description":null},{"title":"C","url":"http://z"}],"query":{"original":"q2"}}`,
			wantTitles: []string{"B", "C"},
			wantQuery:  "q2",
		},
		{
			name:       "unknown shape",
			kind:       search.KindVideos,
			statusCode: http.StatusOK,
			body:       `{"unexpected":true}`,
			wantErr:    search.ErrDecode,
		},
		{
			name:       "empty body",
			kind:       search.KindWeb,
			statusCode: http.StatusOK,
			body:       "",
			wantErr:    search.ErrUpstream,
		},
		{
			name:       "whitespace body",
			kind:       search.KindNews,
			statusCode: http.StatusOK,
			body:       "  \n",
			wantErr:    search.ErrUpstream,
		},
		{
			name:       "unauthorized",
			kind:       search.KindWeb,
			statusCode: http.StatusUnauthorized,
			body:       `{"error":"bad token"}`,
			wantErr:    search.ErrUpstream,
		},
		{
			name:       "rate limited",
			kind:       search.KindImages,
			statusCode: http.StatusTooManyRequests,
			body:       `{"error":"slow down"}`,
			wantErr:    search.ErrUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.kind, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			})

			res, err := client.Search(context.Background(), search.Request{Query: "q"})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Search() error = %v, wantErr %v", err, tt.wantErr)
				}
				if res != nil {
					t.Errorf("Search() returned partial results %+v", res)
				}
				return
			}

			if err != nil {
				t.Fatalf("Search() unexpected error = %v", err)
			}
			if res.OriginalQuery != tt.wantQuery {
				t.Errorf("OriginalQuery = %q, want %q", res.OriginalQuery, tt.wantQuery)
			}
			if res.Endpoint != tt.kind {
				t.Errorf("Endpoint = %q, want %q", res.Endpoint, tt.kind)
			}
			if len(res.Results) != len(tt.wantTitles) {
				t.Fatalf("got %d results, want %d", len(res.Results), len(tt.wantTitles))
			}
			for i, title := range tt.wantTitles {
				if res.Results[i].Title != title {
					t.Errorf("result %d title = %q, want %q", i, res.Results[i].Title, title)
				}
			}
			if res.CorrelationID == "" {
				t.Error("CorrelationID should be generated")
			}
			if res.Timestamp.IsZero() {
				t.Error("Timestamp not set")
			}
		})
	}
}

func TestClient_Search_UpstreamErrorDetails(t *testing.T) {
	client, _ := newTestClient(t, search.KindWeb, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	})

	_, err := client.Search(context.Background(), search.Request{Query: "q"})

	var upErr *search.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("error = %v, want *UpstreamError", err)
	}
	if upErr.StatusCode != http.StatusServiceUnavailable || upErr.Body != "maintenance" {
		t.Errorf("UpstreamError = %+v", upErr)
	}
	if upErr.Endpoint != search.KindWeb {
		t.Errorf("Endpoint = %q, want web", upErr.Endpoint)
	}
}

func TestClient_Search_CorrelationIDFromHeader(t *testing.T) {
	client, _ := newTestClient(t, search.KindWeb, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req-123")
		w.Write([]byte(webBody))
	})

	res, err := client.Search(context.Background(), search.Request{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if res.CorrelationID != "req-123" {
		t.Errorf("CorrelationID = %q, want req-123", res.CorrelationID)
	}
}

func TestClient_Search_InvalidRequestSkipsNetwork(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, search.KindWeb, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(webBody))
	})

	_, err := client.Search(context.Background(), search.Request{Query: "  "})
	if !errors.Is(err, search.ErrEmptyQuery) {
		t.Errorf("error = %v, want ErrEmptyQuery", err)
	}
	if calls != 0 {
		t.Errorf("server called %d times, want 0", calls)
	}
}

func TestClient_SearchRaw(t *testing.T) {
	raw := `{"results":[{"title":"img","url":"http://i"}],"type":"images"}`
	client, _ := newTestClient(t, search.KindImages, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(raw))
	})

	got, err := client.SearchRaw(context.Background(), search.Request{Query: "cats"})
	if err != nil {
		t.Fatalf("SearchRaw() error = %v", err)
	}
	if got != raw {
		t.Errorf("SearchRaw() = %q, want verbatim body", got)
	}
}

func TestClient_SearchRaw_NoDecode(t *testing.T) {
	client, _ := newTestClient(t, search.KindImages, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	got, err := client.SearchRaw(context.Background(), search.Request{Query: "cats"})
	if err != nil {
		t.Fatalf("SearchRaw() error = %v", err)
	}
	if got != "not json at all" {
		t.Errorf("SearchRaw() = %q", got)
	}
}

func TestClient_SearchRaw_EmptyBody(t *testing.T) {
	client, _ := newTestClient(t, search.KindImages, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.SearchRaw(context.Background(), search.Request{Query: "cats"})
	if !errors.Is(err, search.ErrUpstream) {
		t.Errorf("SearchRaw() error = %v, want ErrUpstream", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	client, _ := newTestClient(t, search.KindWeb, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Search(ctx, search.Request{Query: "slow"})
	if err == nil {
		t.Error("Search() expected timeout error")
	}
	if errors.Is(err, search.ErrUpstream) || errors.Is(err, search.ErrDecode) {
		t.Errorf("transport failure should pass through, got %v", err)
	}
}

func TestClients_SharePacer(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		w.Write([]byte(`{"results":[],"query":{"original":"q"}}`))
	}))
	defer server.Close()

	interval := 50 * time.Millisecond
	p := pacer.New(pacer.Config{MinInterval: interval})

	var endpoints []search.Endpoint
	for _, ep := range search.Endpoints() {
		if ep.Kind != search.KindWeb {
			endpoints = append(endpoints, ep.WithBaseURL(server.URL))
		}
	}
	clients := NewClients(endpoints, p, Config{APIKey: "k"}, zap.NewNop())

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if _, err := c.Search(context.Background(), search.Request{Query: "q"}); err != nil {
				t.Errorf("Search() error = %v", err)
			}
		}(c)
	}
	wg.Wait()

	if len(hits) != 3 {
		t.Fatalf("server hits = %d, want 3", len(hits))
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Before(hits[j]) })
	for i := 1; i < len(hits); i++ {
		if gap := hits[i].Sub(hits[i-1]); gap < interval-5*time.Millisecond {
			t.Errorf("requests %d and %d only %v apart, want >= %v", i-1, i, gap, interval)
		}
	}
}

func TestClient_Metrics(t *testing.T) {
	m := metrics.New()
	client, _ := newTestClient(t, search.KindWeb, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "bad" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(webBody))
	})
	client.WithMetrics(m)

	client.Search(context.Background(), search.Request{Query: "ok"})
	client.Search(context.Background(), search.Request{Query: "bad"})

	if got := testutil.ToFloat64(m.SearchRequestsTotal.WithLabelValues("web", "success")); got != 1 {
		t.Errorf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SearchRequestsTotal.WithLabelValues("web", "upstream_error")); got != 1 {
		t.Errorf("upstream_error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SearchResultsTotal.WithLabelValues("web")); got != 1 {
		t.Errorf("results = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsInFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
}
