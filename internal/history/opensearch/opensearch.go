package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/loykin/folio/internal/history"
)

const (
	DefaultIndex   = "folio-history"
	defaultTimeout = 5 * time.Second
	maxErrBody     = 512
)

type Config struct {
	// BaseURL is scheme://host:port of the cluster.
	BaseURL string
	Index   string
	// Daily appends -YYYY.MM.DD (event time, UTC) to the index name.
	Daily    bool
	Username string
	Password string
	Timeout  time.Duration
}

// Sink indexes folio events as documents. Events are written under their
// ID, so a retried send replaces the earlier document instead of adding one.
type Sink struct {
	client   *http.Client
	baseURL  string
	index    string
	daily    bool
	username string
	password string
}

func New(cfg Config) *Sink {
	if cfg.Index == "" {
		cfg.Index = DefaultIndex
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Sink{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		index:    cfg.Index,
		daily:    cfg.Daily,
		username: cfg.Username,
		password: cfg.Password,
	}
}

// IndexFor returns the index an event is written to.
func (s *Sink) IndexFor(e history.Event) string {
	if !s.daily {
		return s.index
	}
	return s.index + "-" + e.OccurredAt.UTC().Format("2006.01.02")
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	method := http.MethodPost
	u := fmt.Sprintf("%s/%s/_doc", s.baseURL, url.PathEscape(s.IndexFor(e)))
	if e.ID != "" {
		method = http.MethodPut
		u += "/" + url.PathEscape(e.ID)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("opensearch: index %s event: %w", e.Type, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return fmt.Errorf("opensearch: index %s event: status %d: %s", e.Type, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
