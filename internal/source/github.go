package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://api.github.com"
	DefaultTimeout  = 10 * time.Second
	DefaultPerPage  = 100
	DefaultMaxPages = 10
	maxBodyBytes    = 8 << 20
)

// GitHubConfig configures the GitHub REST source.
type GitHubConfig struct {
	BaseURL  string
	Token    string
	PerPage  int
	MaxPages int
	Timeout  time.Duration
	Logger   *slog.Logger
}

// GitHub lists public repositories through the GitHub REST API,
// following Link rel="next" pagination up to MaxPages.
type GitHub struct {
	baseURL  string
	token    string
	perPage  int
	maxPages int
	client   *http.Client
	logger   *slog.Logger
}

func NewGitHub(cfg GitHubConfig) *GitHub {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PerPage <= 0 || cfg.PerPage > 100 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &GitHub{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		perPage:  cfg.PerPage,
		maxPages: cfg.MaxPages,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   cfg.Logger,
	}
}

// ListRepos returns every repository of account. Any failed page fails the
// whole listing so a partial result is never mistaken for a complete one.
func (g *GitHub) ListRepos(ctx context.Context, account string) ([]Repo, error) {
	if strings.TrimSpace(account) == "" {
		return nil, fmt.Errorf("%w: empty account", ErrUnavailable)
	}
	next := fmt.Sprintf("%s/users/%s/repos?per_page=%d", g.baseURL, url.PathEscape(account), g.perPage)
	var out []Repo
	for page := 1; next != ""; page++ {
		if page > g.maxPages {
			g.logger.Warn("repository listing truncated", "account", account, "max_pages", g.maxPages)
			break
		}
		repos, link, err := g.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		out = append(out, repos...)
		next = nextLink(link)
	}
	g.logger.Debug("listed repositories", "account", account, "count", len(out))
	return out, nil
}

func (g *GitHub) fetchPage(ctx context.Context, u string) ([]Repo, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "folio")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, "", &StatusError{Code: resp.StatusCode, URL: u}
	}
	var repos []Repo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&repos); err != nil {
		return nil, "", fmt.Errorf("%w: decode listing: %v", ErrUnavailable, err)
	}
	return repos, resp.Header.Get("Link"), nil
}

var linkNextRe = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="next"`)

// nextLink extracts the rel="next" target from an RFC 8288 Link header.
func nextLink(header string) string {
	m := linkNextRe.FindStringSubmatch(header)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}
