// Package common holds the small helpers shared by all provider adapters.
package common

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

const maxResponseBytes = 4 * 1024 * 1024

var artSizePattern = regexp.MustCompile(`/[0-9]+x[0-9]+bb\.(jpg|png)`)

// UpscaleArtwork rewrites a provider thumbnail URL to request a 600x600
// variant. The substitution is pattern-based; nothing checks that the
// larger rendition exists upstream.
func UpscaleArtwork(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	out := artSizePattern.ReplaceAllString(rawURL, "/600x600bb.$1")
	return strings.Replace(out, "100x100", "600x600", 1)
}

// FetchJSON performs a GET against url and decodes the JSON body into
// dest. Non-2xx responses and malformed bodies are returned as errors;
// adapters treat any error as "this provider yielded nothing".
func FetchJSON(ctx context.Context, client *http.Client, url, userAgent string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("provider HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("malformed provider payload: %w", err)
	}
	return nil
}

// JoinNonEmpty joins the non-empty parts with a single space.
func JoinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return strings.Join(out, " ")
}
