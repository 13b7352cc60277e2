package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"strings"

	scalargo "github.com/bdpiprava/scalar-go"
	"github.com/go-chi/chi/v5"
	"github.com/matthewgall/epicdeals/internal/archive"
	"github.com/matthewgall/epicdeals/internal/auth"
	"github.com/matthewgall/epicdeals/internal/cache"
	"github.com/matthewgall/epicdeals/internal/compare"
	"github.com/matthewgall/epicdeals/internal/config"
	"github.com/matthewgall/epicdeals/internal/providers/brave"
	"github.com/matthewgall/epicdeals/internal/providers/ebay"
	"github.com/matthewgall/epicdeals/internal/providers/ebaydeals"
	"github.com/matthewgall/epicdeals/internal/providers/openai"
	"github.com/robfig/cron/v3"
)

const maxRequestBodyBytes = 1 << 20

type Server struct {
	config   *config.Config
	auth     *auth.AuthService
	cache    cache.Cache
	router   *chi.Mux
	tokens   *ebay.TokenCache
	ebay     *ebay.Client
	deals    *ebaydeals.Scraper
	compare  *compare.Service
	recorder *archive.Recorder
	jobs     *cron.Cron
	docsHTML string
}

func New(cfg *config.Config) (*Server, error) {
	cacheImpl, err := cache.Open(cfg.Cache)
	if err != nil {
		log.Printf("Warning: failed to initialize %s cache, continuing without one: %v", cfg.Cache.Provider, err)
		cacheImpl = nil
	}
	if cacheImpl != nil && cfg.Cache.ClearOnStart {
		if err := cacheImpl.ClearAll(context.Background()); err != nil {
			log.Printf("Warning: failed to clear %s cache: %v", cfg.Cache.Provider, err)
		} else {
			log.Printf("Cleared %s cache", cfg.Cache.Provider)
		}
	}

	storage, err := archive.NewStorage(context.Background(), cfg.Archive)
	if err != nil {
		if cacheImpl != nil {
			_ = cacheImpl.Close()
		}
		return nil, err
	}

	var recorder *archive.Recorder
	var compareOpts []compare.Option
	if storage != nil {
		recorder = archive.NewRecorder(storage)
		compareOpts = append(compareOpts, compare.WithRecorder(recorder))
	}

	tokens := ebay.NewTokenCacheFor(&cfg.EBay)
	fetcher := ebaydeals.NewHTTPFetcher(&cfg.Deals)

	s := &Server{
		config:   cfg,
		auth:     auth.NewAuthService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL),
		cache:    cacheImpl,
		router:   chi.NewRouter(),
		tokens:   tokens,
		ebay:     ebay.New(&cfg.EBay, tokens),
		deals:    ebaydeals.NewScraper(&cfg.Deals, &cfg.EBay, fetcher, cacheImpl, cfg.Cache.TTL.Deals),
		recorder: recorder,
		compare: compare.New(
			brave.New(&cfg.Search, cacheImpl, cfg.Cache.TTL.Search),
			openai.New(&cfg.Completion),
			compareOpts...,
		),
		docsHTML: renderDocs(cfg.App),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func renderDocs(app config.AppConfig) string {
	dir := strings.TrimSpace(app.DocsDir)
	if dir == "" {
		return ""
	}
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir(filepath.Clean(dir)),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle(app.Name+" API"),
		),
	)
	if err != nil {
		log.Printf("Warning: failed to render API docs from %s: %v", dir, err)
		return ""
	}
	return html
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.recoverMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.maxBodyMiddleware)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) maxBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > maxRequestBodyBytes {
			respondJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request_too_large"})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// requireToken gates a route behind an API token when a token secret is configured.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		token, err := auth.BearerToken(r)
		if err != nil {
			respondJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "error": "unauthorized"})
			return
		}
		if _, err := s.auth.ValidateToken(token); err != nil {
			respondJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				log.Printf("panic: %v\n%s", err, debug.Stack())
				respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_server_error"})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) setupRoutes() {
	s.router.NotFound(s.handleNotFound)
	s.router.MethodNotAllowed(s.handleMethodNotAllowed)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/docs", s.handleDocs)

	for _, prefix := range []string{"", "/api"} {
		s.router.Get(prefix+"/search", s.handleSearch)
		s.router.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Post(prefix+"/compare", s.handleCompare)
			r.Get(prefix+"/compare/{id}", s.handleComparisonSnapshot)
		})
	}
	s.router.Get("/deals", s.handleDeals)
	s.router.Get("/api/ebay/deals", s.handleDeals)
	s.router.Get("/api/ebay/search", s.handleSearch)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"providers": map[string]bool{
			"ebay":    s.config.EBay.ClientID != "" && s.config.EBay.ClientSecret != "",
			"compare": s.compare.Configured(),
			"cache":   s.cache != nil,
			"archive": s.recorder != nil,
		},
	})
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	if s.docsHTML == "" {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "docs_unavailable"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(s.docsHTML)); err != nil {
		log.Printf("write docs response: %v", err)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode json response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]interface{}{"success": false, "error": err.Error()})
}

// Close stops background jobs and releases the cache.
func (s *Server) Close() error {
	s.StopJobs()
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
