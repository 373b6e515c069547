package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to a LibreTranslate-compatible translation endpoint.
type Client struct {
	base string
	http *http.Client
}

func New(base string, timeoutSec int) *Client {
	if timeoutSec <= 0 {
		timeoutSec = 8
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

// Translate requests a translation of text into target. source may be a
// language code or "auto" for server-side detection. The caller treats
// failures as best-effort and falls back to the untranslated text.
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	if c == nil || c.base == "" {
		return "", fmt.Errorf("translation client not configured")
	}
	if strings.TrimSpace(text) == "" || target == "" {
		return text, nil
	}

	src := strings.TrimSpace(source)
	if src == "" {
		src = "auto"
	}

	payload := map[string]any{
		"q":      text,
		"source": src,
		"target": target,
		"format": "text",
	}
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/translate", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("translation http %d for target %s", resp.StatusCode, target)
	}

	var lr struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", err
	}

	out := strings.TrimSpace(lr.TranslatedText)
	if out == "" {
		return "", fmt.Errorf("translation returned empty text")
	}
	return out, nil
}
