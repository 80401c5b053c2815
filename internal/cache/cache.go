package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/loykin/folio/internal/history"
	"github.com/loykin/folio/internal/metrics"
	"github.com/loykin/folio/internal/project"
	"github.com/loykin/folio/internal/source"
	"github.com/loykin/folio/internal/store"
	"github.com/loykin/folio/internal/store/memory"
)

const (
	DefaultTTL          = 24 * time.Hour
	DefaultFetchTimeout = 10 * time.Second
	DefaultKeyPrefix    = "projects_cache-"
)

// ErrCorrupt marks a persisted snapshot that could not be decoded.
var ErrCorrupt = errors.New("cache: corrupt snapshot")

// Config configures a Cache. Zero values take the defaults.
type Config struct {
	TTL          time.Duration
	FetchTimeout time.Duration
	// KeyPrefix is prepended to the account to form the store key.
	KeyPrefix   string
	Store       store.Store
	Categorizer *project.Categorizer
	Sink        history.Sink
	Now         func() time.Time
	Logger      *slog.Logger
}

// Cache serves categorized project lists per account. Snapshots are
// immutable and swapped whole; at most one upstream fetch per account runs
// at a time.
type Cache struct {
	src          source.Source
	ttl          time.Duration
	fetchTimeout time.Duration
	keyPrefix    string
	store        store.Store
	cat          *project.Categorizer
	sink         history.Sink
	now          func() time.Time
	logger       *slog.Logger

	mu    sync.RWMutex
	snaps map[string]*project.Snapshot
	group singleflight.Group
}

func New(src source.Source, cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Store == nil {
		cfg.Store = memory.New()
	}
	if cfg.Categorizer == nil {
		cfg.Categorizer = project.NewCategorizer(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cache{
		src:          src,
		ttl:          cfg.TTL,
		fetchTimeout: cfg.FetchTimeout,
		keyPrefix:    cfg.KeyPrefix,
		store:        cfg.Store,
		cat:          cfg.Categorizer,
		sink:         history.OrNop(cfg.Sink),
		now:          cfg.Now,
		logger:       cfg.Logger,
		snaps:        make(map[string]*project.Snapshot),
	}
}

// TTL returns the configured freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the account's records. A fresh snapshot is returned without
// contacting upstream. Otherwise a single shared refresh runs; if it fails
// Get returns an empty slice and nothing is cached.
func (c *Cache) Get(ctx context.Context, account string) []project.Record {
	snap, reason := c.lookup(ctx, account)
	if snap.Fresh(c.now(), c.ttl) {
		metrics.IncCacheHit(account)
		return snap.Clone()
	}
	metrics.IncCacheMiss(account, reason)

	v, _, _ := c.group.Do(account, func() (any, error) {
		return c.refresh(ctx, account), nil
	})
	fresh, _ := v.(*project.Snapshot)
	return fresh.Clone()
}

// Snapshot returns the in-memory snapshot for account, if any.
func (c *Cache) Snapshot(account string) (*project.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.snaps[account]
	return s, ok
}

func (c *Cache) key(account string) string { return c.keyPrefix + account }

// lookup returns the current snapshot, loading it from the store on first
// use. The reason names why a nil or stale result is a miss.
func (c *Cache) lookup(ctx context.Context, account string) (*project.Snapshot, string) {
	if s, ok := c.Snapshot(account); ok {
		return s, metrics.MissStale
	}
	s, err := c.load(ctx, account)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, metrics.MissAbsent
	case errors.Is(err, ErrCorrupt):
		c.logger.Warn("ignoring corrupt project cache", "account", account, "error", err)
		return nil, metrics.MissCorrupt
	case err != nil:
		c.logger.Warn("project cache read failed", "account", account, "error", err)
		return nil, metrics.MissAbsent
	}

	c.mu.Lock()
	if cur, ok := c.snaps[account]; ok {
		s = cur
	} else {
		c.snaps[account] = s
	}
	c.mu.Unlock()
	return s, metrics.MissStale
}

func (c *Cache) load(ctx context.Context, account string) (*project.Snapshot, error) {
	b, err := c.store.Get(ctx, c.key(account))
	if err != nil {
		return nil, err
	}
	var s project.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.Records == nil {
		s.Records = []project.Record{}
	}
	return &s, nil
}

// refresh runs inside the single-flight group. It returns nil on upstream failure.
func (c *Cache) refresh(ctx context.Context, account string) *project.Snapshot {
	prev, _ := c.Snapshot(account)
	if prev.Fresh(c.now(), c.ttl) {
		return prev
	}

	// The fetch is shared by every waiter, so one caller going away must not cancel it.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	started := time.Now()
	repos, err := c.src.ListRepos(fctx, account)
	if err != nil {
		metrics.ObserveRefresh(account, false, time.Since(started).Seconds())
		c.logger.Warn("project fetch failed", "account", account, "error", err)
		e := history.NewEvent(history.EventRefreshFailed, c.now())
		e.Account = account
		e.Detail = err.Error()
		c.emit(e)
		return nil
	}

	records := c.categorize(repos)
	captured := c.now()
	if prev != nil && prev.CapturedAt.After(captured) {
		captured = prev.CapturedAt
	}
	snap := &project.Snapshot{CapturedAt: captured, Records: records}

	c.mu.Lock()
	c.snaps[account] = snap
	c.mu.Unlock()

	pctx, pcancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	err = c.persist(pctx, account, snap)
	pcancel()
	if err != nil {
		c.logger.Error("project cache write failed", "account", account, "error", err)
	}

	metrics.ObserveRefresh(account, true, time.Since(started).Seconds())
	metrics.SetCachedProjects(account, len(records))
	c.logger.Info("project cache refreshed", "account", account, "projects", len(records), "fetched", len(repos))

	e := history.NewEvent(history.EventRefresh, captured)
	e.Account = account
	e.Count = len(records)
	c.emit(e)
	return snap
}

// categorize drops forks and labels the rest. A missing description is
// replaced by the placeholder first, so the placeholder takes part in
// categorization ("script" files undescribed repos under Python).
func (c *Cache) categorize(repos []source.Repo) []project.Record {
	out := make([]project.Record, 0, len(repos))
	for _, r := range repos {
		if r.Fork {
			continue
		}
		desc := project.NoDescription
		if r.Description != nil && *r.Description != "" {
			desc = *r.Description
		}
		category := c.cat.Categorize(r.Name, desc)
		out = append(out, project.Record{
			Name:        r.Name,
			Description: desc,
			URL:         r.HTMLURL,
			Stars:       r.Stars,
			Language:    r.Language,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
			Category:    category,
		})
	}
	return out
}

func (c *Cache) persist(ctx context.Context, account string, s *project.Snapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, c.key(account), b)
}

func (c *Cache) emit(e history.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.sink.Send(ctx, e); err != nil {
		c.logger.Warn("history sink send failed", "event", e.Type, "error", err)
	}
}
