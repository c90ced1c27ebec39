package domain

import (
	"strings"
	"time"
)

type SearchStatus string

const (
	StatusSuccess       SearchStatus = "success"
	StatusUpstreamError SearchStatus = "upstream_error"
	StatusDecodeError   SearchStatus = "decode_error"
	StatusFailed        SearchStatus = "failed"
)

func (s SearchStatus) IsValid() bool {
	switch s {
	case StatusSuccess, StatusUpstreamError, StatusDecodeError, StatusFailed:
		return true
	}
	return false
}

// SearchRecord - одна завершенная попытка поиска (успешная или нет)
type SearchRecord struct {
	ID            int64
	Endpoint      string
	Query         string
	Count         int
	Offset        int
	ResultCount   int
	Status        SearchStatus
	Error         string
	CorrelationID string
	StartedAt     time.Time
	FinishedAt    time.Time
}

func (r *SearchRecord) Validate() error {
	if r.Endpoint == "" || strings.TrimSpace(r.Query) == "" {
		return ErrInvalidRecord
	}
	if !r.Status.IsValid() {
		return ErrInvalidRecord
	}
	if r.FinishedAt.Before(r.StartedAt) {
		return ErrInvalidRecord
	}
	return nil
}

func (r *SearchRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
