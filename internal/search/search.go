package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultCount = 10
	MaxCount     = 100
)

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrUpstream       = errors.New("upstream search failed")
	ErrDecode         = errors.New("unrecognized search response")
	ErrUnknownKind    = errors.New("unknown endpoint kind")
)

// Client - один клиент на один вариант эндпоинта
type Client interface {
	Search(ctx context.Context, req Request) (*Results, error)
	SearchRaw(ctx context.Context, req Request) (string, error)
	Endpoint() Endpoint
}

type Request struct {
	Query  string
	Count  int
	Offset int
}

// Normalize подставляет значения по умолчанию
func (r Request) Normalize() Request {
	r.Query = strings.TrimSpace(r.Query)
	if r.Count == 0 {
		r.Count = DefaultCount
	}
	return r
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if r.Count < 0 || r.Count > MaxCount {
		return fmt.Errorf("%w: count %d", ErrInvalidRequest, r.Count)
	}
	if r.Offset < 0 {
		return fmt.Errorf("%w: offset %d", ErrInvalidRequest, r.Offset)
	}
	return nil
}

type Result struct {
	Title       string
	URL         string
	Description *string
}

// HasDescription - провайдер мог прислать null
func (r Result) HasDescription() bool {
	return r.Description != nil
}

type Results struct {
	Request       Request
	Endpoint      Kind
	OriginalQuery string
	Results       []Result
	Timestamp     time.Time
	CorrelationID string
}

func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Results)
}

// UpstreamError - провайдер ответил не-2xx или пустым телом
type UpstreamError struct {
	Endpoint   Kind
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s search: status %d, empty body", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s search: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// DecodeError - тело есть, но не подходит ни под одну известную форму
type DecodeError struct {
	Endpoint Kind
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s search: decode response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}
