// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package webtool implements web_fetch: URL retrieval with readability
// extraction, markdown conversion, per-host rate limiting, retry with
// backoff, and a short-lived response cache.
package webtool

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-shiori/go-readability"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/agentruntime/core/pkg/apperr"
	"github.com/agentruntime/core/pkg/tool"
	"github.com/agentruntime/core/pkg/tool/functiontool"
)

// Format selects how the fetched page is rendered back to the caller.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatHTML     Format = "html"
)

// WebFetchArgs defines the parameters for web_fetch.
type WebFetchArgs struct {
	URL       string `json:"url" jsonschema:"required,description=URL to fetch"`
	Format    Format `json:"format,omitempty" jsonschema:"description=Output format,enum=markdown|text|html,default=markdown"`
	Section   string `json:"section,omitempty" jsonschema:"description=Return only the section under this heading, if present"`
	MaxLength int    `json:"maxLength,omitempty" jsonschema:"description=Maximum characters returned,default=10000,minimum=1,maximum=200000"`
}

// Config configures the web_fetch tool's client-side policy.
type Config struct {
	Timeout         time.Duration
	MaxResponseSize int64
	UserAgent       string
	RatePerHost     float64 // requests/second sustained per host
	RateBurst       int
	MaxRetries      uint
	CacheTTL        time.Duration
	CacheSize       int
}

func defaultConfig() *Config {
	return &Config{
		Timeout:         20 * time.Second,
		MaxResponseSize: 5 << 20,
		UserAgent:       "agentruntime-web-fetch/1.0",
		RatePerHost:     10.0 / 60.0,
		RateBurst:       10,
		MaxRetries:      3,
		CacheTTL:        5 * time.Minute,
		CacheSize:       256,
	}
}

type cacheEntry struct {
	data map[string]any
}

// fetcher holds the shared, request-independent state for web_fetch: the
// HTTP client, per-host limiters, and the response cache.
type fetcher struct {
	cfg      *Config
	client   *http.Client
	cache    *expirable.LRU[string, cacheEntry]
	limiters sync.Map // host -> *rate.Limiter
}

// NewWebFetch creates the web_fetch tool. A nil cfg uses sane defaults.
func NewWebFetch(cfg *Config) (tool.CallableTool, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}

	f := &fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  expirable.NewLRU[string, cacheEntry](cfg.CacheSize, nil, cfg.CacheTTL),
	}

	return functiontool.NewWithValidation(
		functiontool.Config{
			Name:        "web_fetch",
			Description: "Fetch a URL and return its content as markdown, plain text, or cleaned HTML, with readability extraction applied to articles.",
		},
		func(ctx tool.Context, args WebFetchArgs) (map[string]any, error) {
			return f.fetch(ctx, args)
		},
		validateWebFetchArgs,
	)
}

func validateWebFetchArgs(args WebFetchArgs) error {
	return validateURL(args.URL)
}

// validateURL rejects non-http(s) schemes and requests aimed at loopback,
// link-local, private, or cloud-metadata addresses, so web_fetch cannot be
// used to probe the host's own network.
func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return apperr.Wrap(apperr.InvalidArgument, "invalid URL", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return apperr.New(apperr.InvalidArgument, "only http/https URLs are allowed")
	}
	host := parsed.Hostname()
	if host == "" {
		return apperr.New(apperr.InvalidArgument, "URL has no host")
	}
	if host == "169.254.169.254" || host == "metadata.google.internal" {
		return apperr.New(apperr.InvalidArgument, "requests to cloud metadata endpoints are not allowed")
	}
	if ip := net.ParseIP(host); ip != nil && isBlockedIP(ip) {
		return apperr.New(apperr.InvalidArgument, "requests to private or loopback addresses are not allowed")
	}
	return nil
}

func isBlockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsPrivate() || ip.IsUnspecified()
}

func (f *fetcher) fetch(ctx tool.Context, args WebFetchArgs) (map[string]any, error) {
	format := args.Format
	if format == "" {
		format = FormatMarkdown
	}
	maxLength := args.MaxLength
	if maxLength <= 0 {
		maxLength = 10000
	}

	cacheKey := fmt.Sprintf("%s|%s|%s", args.URL, format, args.Section)
	if entry, ok := f.cache.Get(cacheKey); ok {
		return entry.data, nil
	}

	if isYouTubeURL(args.URL) {
		data, err := fetchYouTubeTranscript(ctx, f.client, args.URL, maxLength)
		if err != nil {
			return nil, err
		}
		f.cache.Add(cacheKey, cacheEntry{data: data})
		return data, nil
	}

	parsed, _ := url.Parse(args.URL)
	if err := f.waitForHost(ctx, parsed.Hostname()); err != nil {
		return nil, err
	}

	body, err := f.fetchWithRetry(ctx, args.URL)
	if err != nil {
		return nil, err
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "readability extraction failed", err)
	}

	var rendered string
	var headings []string
	switch format {
	case FormatHTML:
		rendered = article.Content
	case FormatText:
		rendered = article.TextContent
	default:
		rendered, headings = htmlToMarkdown(article.Content)
	}

	if args.Section != "" {
		rendered = extractSection(rendered, args.Section)
	}

	truncated := false
	if len(rendered) > maxLength {
		rendered = truncateAtWordBoundary(rendered, maxLength)
		truncated = true
	}

	data := map[string]any{
		"url":       args.URL,
		"title":     article.Title,
		"content":   rendered,
		"format":    string(format),
		"headings":  headings,
		"truncated": truncated,
	}
	f.cache.Add(cacheKey, cacheEntry{data: data})
	return data, nil
}

func (f *fetcher) waitForHost(ctx context.Context, host string) error {
	v, _ := f.limiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(f.cfg.RatePerHost), f.cfg.RateBurst))
	limiter := v.(*rate.Limiter)
	if err := limiter.Wait(ctx); err != nil {
		return apperr.Wrap(apperr.RateLimited, "rate limit wait cancelled", err)
	}
	return nil
}

// fetchWithRetry retries transient failures (network errors and 5xx/429)
// with exponential backoff, but gives up immediately on 4xx responses other
// than 429 since those will not succeed on retry.
func (f *fetcher) fetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, backoff.Permanent(apperr.Wrap(apperr.InvalidArgument, "invalid request", err))
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, apperr.Wrap(apperr.External, "fetch failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(apperr.New(apperr.External, fmt.Sprintf("HTTP %d from %s", resp.StatusCode, rawURL)))
		}
		if resp.StatusCode >= 400 {
			return nil, apperr.New(apperr.External, fmt.Sprintf("HTTP %d from %s", resp.StatusCode, rawURL))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxResponseSize))
		if err != nil {
			return nil, apperr.Wrap(apperr.External, "read response body", err)
		}
		return body, nil
	}

	return backoff.Retry(ctx, op, backoff.WithMaxTries(f.cfg.MaxRetries))
}

func truncateAtWordBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "\n... (truncated)"
}

// extractSection returns the portion of a rendered markdown document
// starting at a heading matching name, up to (but not including) the next
// heading of equal or higher level. Falls back to the full document if no
// matching heading is found.
func extractSection(markdown, name string) string {
	lines := strings.Split(markdown, "\n")
	start := -1
	startLevel := 0
	for i, line := range lines {
		level, text := headingLevel(line)
		if level == 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(name)) {
			start = i
			startLevel = level
			break
		}
	}
	if start == -1 {
		return markdown
	}
	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		level, _ := headingLevel(lines[i])
		if level > 0 && level <= startLevel {
			end = i
			break
		}
	}
	return strings.Join(lines[start:end], "\n")
}

func headingLevel(line string) (int, string) {
	trimmed := strings.TrimLeft(line, " ")
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 || level >= len(trimmed) || trimmed[level] != ' ' {
		return 0, ""
	}
	return level, trimmed[level+1:]
}
