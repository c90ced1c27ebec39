package brave

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kitbuilder587/brave-search/internal/search"
)

var (
	errNotJSONObject = errors.New("response is not a JSON object")
	errUnknownShape  = errors.New("neither web.results nor results present")
)

// Envelope - одна из известных форм ответа провайдера
type Envelope interface {
	ToResults(req search.Request, correlationID string, at time.Time) *search.Results
}

type braveResult struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Description *string `json:"description"`
}

type braveQuery struct {
	Original string `json:"original"`
}

// WebEnvelope - ответ /web/search, результаты лежат в web.results
type WebEnvelope struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
	Query braveQuery `json:"query"`
}

// FlatEnvelope - ответ news/images/videos, results на верхнем уровне
type FlatEnvelope struct {
	Results []braveResult `json:"results"`
	Query   braveQuery    `json:"query"`
}

func (e *WebEnvelope) ToResults(req search.Request, correlationID string, at time.Time) *search.Results {
	return buildResults(req, e.Query.Original, e.Web.Results, correlationID, at)
}

func (e *FlatEnvelope) ToResults(req search.Request, correlationID string, at time.Time) *search.Results {
	return buildResults(req, e.Query.Original, e.Results, correlationID, at)
}

func buildResults(req search.Request, original string, raw []braveResult, correlationID string, at time.Time) *search.Results {
	results := make([]search.Result, len(raw))
	for i, r := range raw {
		results[i] = search.Result{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		}
	}

	return &search.Results{
		Request:       req,
		OriginalQuery: original,
		Results:       results,
		Timestamp:     at,
		CorrelationID: correlationID,
	}
}

// DecodeEnvelope определяет форму ответа по структуре: сначала web, потом плоская.
// Дискриминатора провайдер не присылает.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotJSONObject, err)
	}
	if top == nil {
		return nil, errNotJSONObject
	}

	if isWebShape(top) {
		var env WebEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("web envelope: %w", err)
		}
		return &env, nil
	}

	if isArray(top["results"]) {
		var env FlatEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("flat envelope: %w", err)
		}
		return &env, nil
	}

	return nil, errUnknownShape
}

func isWebShape(top map[string]json.RawMessage) bool {
	raw, ok := top["web"]
	if !ok || !isObject(raw) {
		return false
	}
	var web map[string]json.RawMessage
	if err := json.Unmarshal(raw, &web); err != nil {
		return false
	}
	return isArray(web["results"])
}

func isObject(raw json.RawMessage) bool {
	return firstByte(raw) == '{'
}

func isArray(raw json.RawMessage) bool {
	return firstByte(raw) == '['
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
