package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kitbuilder587/brave-search/internal/search"
)

func TestMockClient_Search(t *testing.T) {
	results := []search.Result{
		{Title: "Test 1", URL: "https://example.com/1"},
		{Title: "Test 2", URL: "https://example.com/2"},
	}

	client := New(search.KindNews).WithResults(results)

	resp, err := client.Search(context.Background(), search.Request{Query: "test"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(resp.Results) != 2 {
		t.Errorf("Search() got %d results, want 2", len(resp.Results))
	}
	if resp.Endpoint != search.KindNews {
		t.Errorf("Endpoint = %q, want news", resp.Endpoint)
	}
	if client.LastRequest.Query != "test" {
		t.Errorf("LastRequest = %+v", client.LastRequest)
	}
}

func TestMockClient_Error(t *testing.T) {
	upErr := &search.UpstreamError{Endpoint: search.KindWeb, StatusCode: 500}
	client := New(search.KindWeb).WithError(upErr)

	_, err := client.Search(context.Background(), search.Request{Query: "test"})
	if !errors.Is(err, search.ErrUpstream) {
		t.Errorf("Search() error = %v, want ErrUpstream", err)
	}

	_, err = client.SearchRaw(context.Background(), search.Request{Query: "test"})
	if !errors.Is(err, search.ErrUpstream) {
		t.Errorf("SearchRaw() error = %v, want ErrUpstream", err)
	}
	if client.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", client.Calls())
	}
}

func TestMockClient_Delay(t *testing.T) {
	client := New(search.KindWeb).
		WithResults([]search.Result{{Title: "Test"}}).
		WithDelay(50 * time.Millisecond)

	start := time.Now()
	_, err := client.Search(context.Background(), search.Request{Query: "test"})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if elapsed < 50*time.Millisecond {
		t.Errorf("Search() elapsed = %v, want >= 50ms", elapsed)
	}
}

func TestMockClient_ContextCancellation(t *testing.T) {
	client := New(search.KindWeb).
		WithResults([]search.Result{{Title: "Test"}}).
		WithDelay(1 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Search(ctx, search.Request{Query: "test"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Search() error = %v, want DeadlineExceeded", err)
	}
}

func TestMockClient_Raw(t *testing.T) {
	client := New(search.KindImages).WithRaw(`{"results":[]}`)

	got, err := client.SearchRaw(context.Background(), search.Request{Query: "cats"})
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"results":[]}` {
		t.Errorf("SearchRaw() = %q", got)
	}
}

func TestMockClient_Reset(t *testing.T) {
	client := New(search.KindWeb)
	client.Search(context.Background(), search.Request{Query: "a"})
	client.Search(context.Background(), search.Request{Query: "b"})

	if len(client.AllRequests) != 2 {
		t.Fatalf("AllRequests = %d, want 2", len(client.AllRequests))
	}

	client.Reset()
	if client.Calls() != 0 || len(client.AllRequests) != 0 {
		t.Error("Reset() did not clear state")
	}
}
