package search

import "strings"

type Kind string

const (
	KindWeb    Kind = "web"
	KindNews   Kind = "news"
	KindImages Kind = "images"
	KindVideos Kind = "videos"
)

const defaultAPIBase = "https://api.search.brave.com/res/v1"

func (k Kind) IsValid() bool {
	switch k {
	case KindWeb, KindNews, KindImages, KindVideos:
		return true
	}
	return false
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", ErrUnknownKind
	}
	return k, nil
}

func AllKinds() []Kind {
	return []Kind{KindWeb, KindNews, KindImages, KindVideos}
}

// Endpoint - статическое описание варианта, после создания не меняется
type Endpoint struct {
	Kind        Kind
	DisplayName string
	Description string
	BaseURL     string
}

// WithBaseURL возвращает копию с другим адресом
func (e Endpoint) WithBaseURL(url string) Endpoint {
	if url != "" {
		e.BaseURL = url
	}
	return e
}

func DefaultEndpoint(kind Kind) (Endpoint, error) {
	for _, e := range Endpoints() {
		if e.Kind == kind {
			return e, nil
		}
	}
	return Endpoint{}, ErrUnknownKind
}

func Endpoints() []Endpoint {
	return []Endpoint{
		{
			Kind:        KindWeb,
			DisplayName: "Web Search",
			Description: "General web search for pages, articles and documentation",
			BaseURL:     defaultAPIBase + "/web/search",
		},
		{
			Kind:        KindNews,
			DisplayName: "News Search",
			Description: "Recent news articles and press coverage",
			BaseURL:     defaultAPIBase + "/news/search",
		},
		{
			Kind:        KindImages,
			DisplayName: "Image Search",
			Description: "Images matching the query, returned as raw listing",
			BaseURL:     defaultAPIBase + "/images/search",
		},
		{
			Kind:        KindVideos,
			DisplayName: "Video Search",
			Description: "Videos matching the query",
			BaseURL:     defaultAPIBase + "/videos/search",
		},
	}
}
