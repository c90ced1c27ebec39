package domain

import "errors"

var (
	ErrEmptyQuery        = errors.New("empty query")
	ErrNoEndpoints       = errors.New("no search endpoints configured")
	ErrAllSearchesFailed = errors.New("all searches failed")
)

var (
	ErrInvalidRecord = errors.New("invalid search record")
)
