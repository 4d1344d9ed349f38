package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Provider wraps the external translation service behind a single call.
//
// The failure contract is deliberate: a visible chat message, even
// untranslated, beats a dropped one. Any provider failure degrades to the
// original text and is logged, never returned as an error. One attempt per
// invocation; retry policy belongs to callers, and none is configured.
type Provider struct {
	endpoint   string
	apiKey     string
	sourceLang string
	client     *http.Client
	log        *slog.Logger
}

func NewProvider(log *slog.Logger, endpoint, apiKey, sourceLang string, timeout time.Duration) *Provider {
	return &Provider{
		endpoint:   endpoint,
		apiKey:     apiKey,
		sourceLang: sourceLang,
		client:     &http.Client{Timeout: timeout},
		log:        log,
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate renders text into targetLang.
// Empty text and targetLang equal to the canonical source language are
// returned unchanged without a round-trip.
func (p *Provider) Translate(ctx context.Context, text, targetLang string) string {
	if text == "" {
		return text
	}
	if targetLang == "" || targetLang == p.sourceLang {
		return text
	}

	payload, err := json.Marshal(translateRequest{
		Q:      text,
		Source: "auto",
		Target: targetLang,
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		p.log.Error("Translation request encoding failed", "error", err)
		return text
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		p.log.Error("Translation request creation failed", "error", err)
		return text
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("Translation provider unreachable", "target", targetLang, "error", err)
		return text
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.log.Warn("Translation provider refused the call",
			"target", targetLang,
			"status", resp.StatusCode,
			"body", string(body))
		return text
	}

	var decoded translateResponse
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		p.log.Warn(fmt.Sprintf("Translation response unreadable: %v", err))
		return text
	}
	if decoded.TranslatedText == "" {
		return text
	}
	return decoded.TranslatedText
}
