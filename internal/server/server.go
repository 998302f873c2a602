// Package server exposes the desk over HTTP: a JSON API, server-rendered
// pages and an RSS feed of approved articles.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/newsdesk"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// DefaultPrincipalHeader carries the authenticated username.
const DefaultPrincipalHeader = "X-Newsdesk-User"

// errUnknownPrincipal is returned when the header names no registered user.
var errUnknownPrincipal = errors.New("unknown principal")

// Options configures a Server.
type Options struct {
	// PrincipalHeader is set by the authenticating proxy in front of the server.
	PrincipalHeader string
	// SiteTitle is shown in page headers and the RSS channel.
	SiteTitle string
	// BaseURL is the public origin used in the RSS channel link.
	BaseURL string
}

// Server is the HTTP server for the desk.
type Server struct {
	desk   *newsdesk.Desk
	opts   Options
	pages  map[string]*template.Template
	router *httprouter.Router
	logger *slog.Logger
}

// handler serves one route for an already resolved principal.
type handler func(w http.ResponseWriter, r *http.Request, p *domain.Principal, params httprouter.Params) error

// New creates a new Server.
func New(desk *newsdesk.Desk, opts Options, logger *slog.Logger) (*Server, error) {
	if opts.PrincipalHeader == "" {
		opts.PrincipalHeader = DefaultPrincipalHeader
	}
	if opts.SiteTitle == "" {
		opts.SiteTitle = "Newsdesk"
	}
	if logger == nil {
		logger = slog.Default()
	}

	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatDate": func(t time.Time) string { return t.Format("2 Jan 2006") },
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone so {{define "content"}} does not collide.
	pageNames := []string{"index.html", "article.html", "publishers.html", "newsletter.html", "error.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		desk:   desk,
		opts:   opts,
		pages:  pages,
		router: httprouter.New(),
		logger: logger.With("component", "server"),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.router.ServeFiles("/static/*filepath", http.FS(staticSub))

	// pages
	s.router.GET("/", s.page(s.handleIndex))
	s.router.GET("/independent", s.page(s.handleIndependent))
	s.router.GET("/publishers", s.page(s.handlePublishers))
	s.router.GET("/article/:id", s.page(s.handleArticle))
	s.router.GET("/newsletter/:id", s.page(s.handleNewsletter))
	s.router.GET("/feed.xml", s.page(s.handleRSS))

	// api
	s.router.GET("/api/me", s.api(s.apiMe))
	s.router.PUT("/api/me/role", s.api(s.apiChangeRole))

	s.router.GET("/api/articles", s.api(s.apiListArticles))
	s.router.POST("/api/articles", s.api(s.apiCreateArticle))
	s.router.GET("/api/articles/:id", s.api(s.apiGetArticle))
	s.router.PATCH("/api/articles/:id", s.api(s.apiEditArticle))
	s.router.DELETE("/api/articles/:id", s.api(s.apiDeleteArticle))
	s.router.POST("/api/articles/:id/approve", s.api(s.apiApproveArticle))
	s.router.POST("/api/articles/:id/decline", s.api(s.apiDeclineArticle))

	s.router.GET("/api/subscriptions", s.api(s.apiSubscriptions))
	s.router.POST("/api/subscriptions/:kind/:id", s.api(s.apiToggleSubscription))

	s.router.GET("/api/publishers", s.api(s.apiListPublishers))
	s.router.POST("/api/publishers", s.api(s.apiCreatePublisher))
	s.router.DELETE("/api/publishers/:id", s.api(s.apiDeletePublisher))
	s.router.POST("/api/publishers/:id/journalists/:uid", s.api(s.apiAddJournalist))

	s.router.GET("/api/newsletters", s.api(s.apiListNewsletters))
	s.router.POST("/api/newsletters", s.api(s.apiCreateNewsletter))
	s.router.GET("/api/newsletters/:id", s.api(s.apiGetNewsletter))
	s.router.PATCH("/api/newsletters/:id", s.api(s.apiEditNewsletter))
	s.router.DELETE("/api/newsletters/:id", s.api(s.apiDeleteNewsletter))
}

// principal resolves the caller from the trusted header. No header means
// anonymous.
func (s *Server) principal(r *http.Request) (*domain.Principal, error) {
	username := r.Header.Get(s.opts.PrincipalHeader)
	if username == "" {
		return nil, nil
	}
	p, err := s.desk.PrincipalByUsername(r.Context(), username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errUnknownPrincipal
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// api wraps a JSON handler: errors become a JSON body with the mapped status.
func (s *Server) api(h handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		p, err := s.principal(r)
		if err == nil {
			err = h(w, r, p, params)
		}
		if err != nil {
			status := s.status(r, err)
			writeJSON(w, status, errorBody{Error: publicMessage(status, err)})
		}
	}
}

// page wraps an HTML handler: errors render the error page.
func (s *Server) page(h handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		p, err := s.principal(r)
		if err == nil {
			err = h(w, r, p, params)
		}
		if err != nil {
			status := s.status(r, err)
			s.renderStatus(w, status, "error.html", map[string]any{
				"Status":  status,
				"Message": publicMessage(status, err),
			})
		}
	}
}

// status maps the error taxonomy to HTTP. Unexpected errors are logged.
func (s *Server) status(r *http.Request, err error) int {
	switch {
	case errors.Is(err, errUnknownPrincipal):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		return http.StatusInternalServerError
	}
}

func publicMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}

func (s *Server) render(w http.ResponseWriter, name string, data map[string]any) {
	s.renderStatus(w, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, status int, name string, data map[string]any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", "template", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data["SiteTitle"] = s.opts.SiteTitle
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.logger.Error("rendering template", "template", name, "error", err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func idParam(params httprouter.Params, name string) (int64, error) {
	id, err := strconv.ParseInt(params.ByName(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(name, "must be a positive integer")
	}
	return id, nil
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("server listening", "addr", "http://"+addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
