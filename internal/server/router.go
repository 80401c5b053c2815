package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/folio/internal/contact"
	"github.com/loykin/folio/internal/heartbeat"
	"github.com/loykin/folio/internal/project"
)

// Projects returns the categorized project list for an account.
type Projects interface {
	Get(ctx context.Context, account string) []project.Record
}

// Signaler records a client heartbeat.
type Signaler interface {
	Signal()
}

// Contacts accepts contact form submissions.
type Contacts interface {
	Submit(ctx context.Context, m contact.Message) (contact.Entry, error)
}

// Liveness reports the monitor state for /healthz.
type Liveness interface {
	State() heartbeat.State
}

// Options wires the router to its collaborators. Contact and Liveness are optional.
type Options struct {
	Account   string
	BasePath  string
	Projects  Projects
	Heartbeat Signaler
	Contact   Contacts
	Liveness  Liveness
	// StaticDir holds index.html and a static/ subdirectory.
	StaticDir string
	Logger    *slog.Logger
}

// Router provides the portfolio HTTP API.
// Endpoints:
//
//	GET  {basePath}/projects   categorized projects, always 200
//	POST {basePath}/heartbeat  liveness ping, always 200
//	POST {basePath}/contact    body: {name,email,message}
//	GET  /healthz
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	opts     Options
	basePath string
	logger   *slog.Logger
}

func NewRouter(opts Options) *Router {
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Router{opts: opts, basePath: sanitizeBase(opts.BasePath), logger: l}
}

// BasePath returns the sanitized API prefix.
func (r *Router) BasePath() string { return r.basePath }

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery(), r.accessLog())
	group := g.Group(r.basePath)
	group.GET("/projects", r.handleProjects)
	group.POST("/heartbeat", r.handleHeartbeat)
	if r.opts.Contact != nil {
		group.POST("/contact", r.handleContact)
	}
	g.GET("/healthz", r.handleHealth)
	if dir := r.opts.StaticDir; dir != "" {
		g.StaticFile("/", filepath.Join(dir, "index.html"))
		g.Static("/static", filepath.Join(dir, "static"))
	}
	return g
}

func (r *Router) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		r.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// --- Handlers ---

type statusResp struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResp struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

func (r *Router) handleProjects(c *gin.Context) {
	records := r.opts.Projects.Get(c.Request.Context(), r.opts.Account)
	if records == nil {
		records = []project.Record{}
	}
	writeJSON(c, http.StatusOK, records)
}

func (r *Router) handleHeartbeat(c *gin.Context) {
	r.opts.Heartbeat.Signal()
	writeJSON(c, http.StatusOK, statusResp{Status: "ok"})
}

func (r *Router) handleContact(c *gin.Context) {
	var m contact.Message
	if err := c.ShouldBindJSON(&m); err != nil {
		writeJSON(c, http.StatusBadRequest, statusResp{Status: "error", Message: "Invalid request body"})
		return
	}
	if _, err := r.opts.Contact.Submit(c.Request.Context(), m); err != nil {
		if errors.Is(err, contact.ErrMissingField) || errors.Is(err, contact.ErrInvalidEmail) {
			writeJSON(c, http.StatusBadRequest, statusResp{Status: "error", Message: err.Error()})
			return
		}
		r.logger.Error("contact submission failed", "error", err)
		writeJSON(c, http.StatusInternalServerError, statusResp{Status: "error", Message: "Failed to save message"})
		return
	}
	writeJSON(c, http.StatusOK, statusResp{Status: "success", Message: "Message received!"})
}

func (r *Router) handleHealth(c *gin.Context) {
	state := heartbeat.Alive
	if r.opts.Liveness != nil {
		state = r.opts.Liveness.State()
	}
	writeJSON(c, http.StatusOK, healthResp{Status: "ok", State: state.String()})
}
