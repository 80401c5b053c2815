package folio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/loykin/folio/internal/browser"
	"github.com/loykin/folio/internal/cache"
	cfg "github.com/loykin/folio/internal/config"
	"github.com/loykin/folio/internal/contact"
	"github.com/loykin/folio/internal/heartbeat"
	"github.com/loykin/folio/internal/history"
	hfactory "github.com/loykin/folio/internal/history/factory"
	"github.com/loykin/folio/internal/logger"
	"github.com/loykin/folio/internal/metrics"
	"github.com/loykin/folio/internal/project"
	"github.com/loykin/folio/internal/server"
	"github.com/loykin/folio/internal/source"
	"github.com/loykin/folio/internal/store"
	sfactory "github.com/loykin/folio/internal/store/factory"
	foliotls "github.com/loykin/folio/internal/tls"
)

// Re-export core types for external consumers.

type Record = project.Record

type Category = project.Category

type Config = cfg.Config

type Repo = source.Repo

type Source = source.Source

type HistorySink = history.Sink

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// Categorize labels a project with the built-in rules.
func Categorize(name, description string) Category { return project.Categorize(name, description) }

// Option customizes NewApp.
type Option func(*options)

type options struct {
	source source.Source
	store  store.Store
	sink   history.Sink
	logger *slog.Logger
	now    func() time.Time
	exit   func(int)
}

// WithSource replaces the GitHub source.
func WithSource(s Source) Option { return func(o *options) { o.source = s } }

// WithStore replaces the configured store backend.
func WithStore(s store.Store) Option { return func(o *options) { o.store = s } }

// WithHistorySink replaces the sink built from history.dsn.
func WithHistorySink(s HistorySink) Option { return func(o *options) { o.sink = s } }

// WithLogger replaces the logger built from [log].
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock replaces time.Now for the cache and liveness monitor.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithExit replaces os.Exit for the liveness monitor.
func WithExit(exit func(int)) Option { return func(o *options) { o.exit = exit } }

// App is a fully wired portfolio server.
type App struct {
	cfg     *Config
	logger  *slog.Logger
	closers []io.Closer

	store     store.Store
	sink      history.Sink
	cache     *cache.Cache
	registrar *heartbeat.Registrar
	monitor   *heartbeat.Monitor
	book      *contact.Book
	router    *server.Router
	handler   http.Handler
}

func NewApp(c *Config, opts ...Option) (*App, error) {
	if c == nil {
		return nil, errors.New("config is required")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: c}
	if o.logger == nil {
		l, closer, err := logger.New(c.Log)
		if err != nil {
			return nil, err
		}
		o.logger = l
		a.closers = append(a.closers, closer)
	}
	a.logger = o.logger

	if c.Metrics.Enabled {
		if err := RegisterMetricsDefault(); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	if o.store == nil {
		st, err := sfactory.CreateStore(c.Store)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
		o.store = st
		a.closers = append(a.closers, st)
	}
	a.store = o.store

	if o.sink == nil && c.History.DSN != "" {
		s, err := hfactory.NewSinkFromDSN(c.History.DSN)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open history sink: %w", err)
		}
		o.sink = s
		if cl, ok := s.(io.Closer); ok {
			a.closers = append(a.closers, cl)
		}
	}
	a.sink = history.OrNop(o.sink)

	if o.source == nil {
		o.source = source.NewGitHub(source.GitHubConfig{
			BaseURL:  c.Source.BaseURL,
			Token:    c.Source.Token,
			PerPage:  c.Source.PerPage,
			MaxPages: c.Source.MaxPages,
			Timeout:  c.Cache.FetchTimeout,
			Logger:   a.logger,
		})
	}

	a.cache = cache.New(o.source, cache.Config{
		TTL:          c.Cache.TTL,
		FetchTimeout: c.Cache.FetchTimeout,
		Store:        a.store,
		Sink:         a.sink,
		Now:          o.now,
		Logger:       a.logger,
	})
	a.registrar = heartbeat.NewRegistrar(o.now)
	a.monitor = heartbeat.NewMonitor(a.registrar, heartbeat.MonitorConfig{
		Threshold: c.Liveness.Threshold,
		Interval:  c.Liveness.Interval,
		Now:       o.now,
		Exit:      o.exit,
		Sink:      a.sink,
		Logger:    a.logger,
	})

	var contacts server.Contacts
	if c.Contact.Enabled {
		book, err := contact.NewBook(contact.Config{
			Key:    c.Contact.Key,
			Store:  a.store,
			Sink:   a.sink,
			Logger: a.logger,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.book = book
		contacts = book
	}

	a.router = server.NewRouter(server.Options{
		Account:   c.Account,
		BasePath:  c.Server.BasePath,
		Projects:  a.cache,
		Heartbeat: a.registrar,
		Contact:   contacts,
		Liveness:  a.monitor,
		StaticDir: c.Server.StaticDir,
		Logger:    a.logger,
	})
	h, err := server.Host(c.Server.Engine, a.router.Handler())
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.handler = h
	return a, nil
}

// Handler returns the HTTP handler for the configured engine.
func (a *App) Handler() http.Handler { return a.handler }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Projects returns the configured account's categorized projects.
func (a *App) Projects(ctx context.Context) []Record { return a.cache.Get(ctx, a.cfg.Account) }

// Heartbeat records a liveness signal.
func (a *App) Heartbeat() { a.registrar.Signal() }

// LivenessState reports the monitor state.
func (a *App) LivenessState() heartbeat.State { return a.monitor.State() }

// Run serves HTTP (and metrics when enabled) until ctx is cancelled. The
// liveness monitor, when enabled, ends the process once heartbeats stop.
func (a *App) Run(ctx context.Context) error {
	tlsCfg, err := foliotls.Setup(a.cfg.Server.TLS)
	if err != nil {
		return fmt.Errorf("tls: %w", err)
	}

	if a.cfg.Liveness.Enabled {
		// the idle clock starts when serving starts
		a.registrar.Signal()
		if err := a.monitor.Start(); err != nil {
			return err
		}
		defer a.monitor.Stop()
		a.logger.Info("liveness monitor started", "threshold", a.cfg.Liveness.Threshold, "interval", a.cfg.Liveness.Interval)
	}

	g, gctx := errgroup.WithContext(ctx)
	srv := server.NewServer(a.cfg.Server.Listen, a.handler, tlsCfg)
	g.Go(func() error {
		return server.Serve(gctx, srv, a.logger, func(addr net.Addr) {
			if a.cfg.Server.OpenBrowser {
				browser.Opener{Logger: a.logger}.OpenAfter(browser.DefaultDelay, browseURL(addr, tlsCfg != nil))
			}
		})
	})
	if a.cfg.Metrics.Enabled {
		g.Go(func() error { return ServeMetrics(gctx, a.cfg.Metrics.Listen) })
	}
	return g.Wait()
}

// browseURL turns the bound address into a URL a local browser can open.
func browseURL(addr net.Addr, https bool) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		host, port = "127.0.0.1", "5005"
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	scheme := "http"
	if https {
		scheme = "https"
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return scheme + "://" + host + ":" + port + "/"
}

// Close releases the store, history sink and log file.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics exposes /metrics on addr using the default registry until ctx is cancelled.
func ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := server.NewServer(addr, mux, nil)
	return server.Serve(ctx, srv, slog.Default(), nil)
}
