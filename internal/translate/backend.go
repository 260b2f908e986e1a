package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"elpais-crawler/internal/httpx"
)

// Backend names of the built-in translation endpoints.
const (
	BackendRapidAPI = "rapidapi"
	BackendFree     = "google-free"
)

const maxResponseBytes = 1 << 20

// ErrEmptyTranslation is returned when an endpoint answers without a translation.
var ErrEmptyTranslation = errors.New("response carried no translation")

// Backend translates a single text.
type Backend interface {
	Name() string
	// Endpoint is the URL requests are sent to; it keys per-host pacing.
	Endpoint() string
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// RapidAPI calls the keyed Google Translate proxy hosted on RapidAPI.
type RapidAPI struct {
	client   *http.Client
	endpoint string
	host     string
	apiKey   string
}

// NewRapidAPI constructs the keyed backend.
func NewRapidAPI(client *http.Client, endpoint, host, apiKey string) *RapidAPI {
	return &RapidAPI{client: client, endpoint: endpoint, host: host, apiKey: apiKey}
}

func (r *RapidAPI) Name() string     { return BackendRapidAPI }
func (r *RapidAPI) Endpoint() string { return r.endpoint }

type rapidAPIResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText *string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (r *RapidAPI) Translate(ctx context.Context, text, source, target string) (string, error) {
	form := url.Values{}
	form.Set("q", text)
	form.Set("target", target)
	form.Set("source", source)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept-Encoding", "application/gzip")
	req.Header.Set("X-RapidAPI-Key", r.apiKey)
	req.Header.Set("X-RapidAPI-Host", r.host)

	body, _, err := httpx.Do(r.client, req, maxResponseBytes)
	if err != nil {
		return "", err
	}

	var payload rapidAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	// A missing or null translatedText is malformed; an empty string is a valid answer.
	if len(payload.Data.Translations) == 0 || payload.Data.Translations[0].TranslatedText == nil {
		return "", ErrEmptyTranslation
	}
	return *payload.Data.Translations[0].TranslatedText, nil
}

// Free calls the unauthenticated Google Translate web endpoint.
type Free struct {
	client   *http.Client
	endpoint string
}

// NewFree constructs the free backend.
func NewFree(client *http.Client, endpoint string) *Free {
	return &Free{client: client, endpoint: endpoint}
}

func (f *Free) Name() string     { return BackendFree }
func (f *Free) Endpoint() string { return f.endpoint }

// Translate returns the first translated segment of the response, which has
// the shape [[["translated", "original", ...], ...], ...].
func (f *Free) Translate(ctx context.Context, text, source, target string) (string, error) {
	u, err := url.Parse(f.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)
	u.RawQuery = q.Encode()

	body, _, err := httpx.Get(ctx, f.client, u.String(), nil, maxResponseBytes)
	if err != nil {
		return "", err
	}
	return firstSegment(body)
}

func firstSegment(body []byte) (string, error) {
	var blocks []json.RawMessage
	if err := json.Unmarshal(body, &blocks); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(blocks) == 0 {
		return "", ErrEmptyTranslation
	}
	var segments []json.RawMessage
	if err := json.Unmarshal(blocks[0], &segments); err != nil {
		return "", fmt.Errorf("decode segments: %w", err)
	}
	if len(segments) == 0 {
		return "", ErrEmptyTranslation
	}
	var parts []any
	if err := json.Unmarshal(segments[0], &parts); err != nil {
		return "", fmt.Errorf("decode segment: %w", err)
	}
	if len(parts) == 0 {
		return "", ErrEmptyTranslation
	}
	translated, ok := parts[0].(string)
	if !ok {
		return "", fmt.Errorf("segment is %T, not a string", parts[0])
	}
	return translated, nil
}
