// Package githubadapter lists a GitHub repository as a directory tree, either
// one directory per request through the contents API or all at once through
// the recursive git tree API.
package githubadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jgivc/stlcatalog/internal/common"
	"github.com/jgivc/stlcatalog/internal/config"
	"github.com/jgivc/stlcatalog/internal/retry"
)

const (
	acceptHeader   = "application/vnd.github+json"
	apiVersion     = "2022-11-28"
	userAgent      = "stlcatalog"
	maxPages       = 50
	linkRelNextTag = `rel="next"`
)

type client struct {
	httpClient *http.Client
	cfg        *config.GitHubConfig
	retry      config.RetryConfig
	log        *slog.Logger
}

func newClient(cfg *config.SourceConfig, log *slog.Logger) *client {
	return &client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        &cfg.GitHub,
		retry:      cfg.Retry,
		log:        log,
	}
}

func (c *client) repoURL(parts ...string) string {
	base := strings.TrimSuffix(c.cfg.APIURL, "/")

	return base + "/repos/" + url.PathEscape(c.cfg.Owner) + "/" + url.PathEscape(c.cfg.Repo) + "/" + strings.Join(parts, "/")
}

// rawURL is the download location of a file on the configured branch.
func (c *client) rawURL(filePath string) string {
	return strings.TrimSuffix(c.cfg.RawURL, "/") + "/" +
		url.PathEscape(c.cfg.Owner) + "/" + url.PathEscape(c.cfg.Repo) + "/" +
		url.PathEscape(c.cfg.Branch) + "/" + escapePath(filePath)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}

	return strings.Join(parts, "/")
}

// getAll decodes every page of a listing, following Link rel="next".
func getAll[T any](ctx context.Context, c *client, firstURL string) ([]T, error) {
	var items []T

	next := firstURL
	for page := 0; next != "" && page < maxPages; page++ {
		var batch []T

		link, err := c.getJSON(ctx, next, &batch)
		if err != nil {
			return nil, err
		}

		items = append(items, batch...)
		next = link
	}

	return items, nil
}

// getJSON fetches one page into v and returns the next page URL, if any.
func (c *client) getJSON(ctx context.Context, target string, v any) (string, error) {
	return retry.Do(ctx, c.retry, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return "", fmt.Errorf("cannot create request: %w", err)
		}

		req.Header.Set("Accept", acceptHeader)
		req.Header.Set("X-GitHub-Api-Version", apiVersion)
		req.Header.Set("User-Agent", userAgent)
		if c.cfg.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}

			return "", retry.Retryable(fmt.Errorf("cannot get %s: %w: %w", target, common.ErrSourceUnavailable, err))
		}
		defer resp.Body.Close()

		if err := statusError(resp); err != nil {
			c.log.Debug("Request failed", slog.String("url", target), slog.Int("status", resp.StatusCode))

			return "", err
		}

		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return "", fmt.Errorf("cannot decode %s: %w: %w", target, common.ErrDirectoryAbsent, err)
		}

		return nextLink(resp.Header.Get("Link")), nil
	})
}

func statusError(resp *http.Response) error {
	code := resp.StatusCode

	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("github returned %d: %w", code, common.ErrDirectoryAbsent)
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("github returned %d: %w", code, common.ErrSourceFatal)
	case code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return retry.Retryable(fmt.Errorf("github returned %d: %w", code, common.ErrSourceUnavailable))
	}

	return fmt.Errorf("github returned %d: %w", code, common.ErrSourceUnavailable)
}

// nextLink extracts the rel="next" target of a Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		for _, param := range segments[1:] {
			if strings.TrimSpace(param) == linkRelNextTag {
				return strings.Trim(strings.TrimSpace(segments[0]), "<>")
			}
		}
	}

	return ""
}
