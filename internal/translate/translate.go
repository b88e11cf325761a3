// Package translate wraps the external translation service as an
// opaque enrichment step applied to a message before delivery. The
// relay neither knows nor cares how the enrichment is produced; a
// failed or absent translator degrades to delivering the original
// content.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Enricher rewrites message content for the recipient. Implementations
// must be safe for concurrent use.
type Enricher interface {
	Enrich(ctx context.Context, content, fromLang, toLang string) (string, error)
}

// Passthrough returns content unchanged. Used when no translator is
// configured.
type Passthrough struct{}

// Enrich returns content as-is.
func (Passthrough) Enrich(ctx context.Context, content, fromLang, toLang string) (string, error) {
	return content, nil
}

// HTTPEnricher calls an external translation service over HTTP.
type HTTPEnricher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEnricher creates an enricher that POSTs to baseURL/translate.
func NewHTTPEnricher(baseURL string) *HTTPEnricher {
	return &HTTPEnricher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	Translated string `json:"translated"`
}

// Enrich requests a translation of content from fromLang to toLang.
func (e *HTTPEnricher) Enrich(ctx context.Context, content, fromLang, toLang string) (string, error) {
	body, err := json.Marshal(translateRequest{Text: content, Source: fromLang, Target: toLang})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translator returned status %d", resp.StatusCode)
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Translated, nil
}
