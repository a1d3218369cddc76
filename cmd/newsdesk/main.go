// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/newsdesk-go/internal/config"
	"github.com/olegiv/newsdesk-go/internal/handler"
	"github.com/olegiv/newsdesk-go/internal/handler/api"
	"github.com/olegiv/newsdesk-go/internal/logging"
	"github.com/olegiv/newsdesk-go/internal/media"
	"github.com/olegiv/newsdesk-go/internal/middleware"
	"github.com/olegiv/newsdesk-go/internal/model"
	"github.com/olegiv/newsdesk-go/internal/seo"
	"github.com/olegiv/newsdesk-go/internal/service"
	"github.com/olegiv/newsdesk-go/internal/store"
	"github.com/olegiv/newsdesk-go/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	keyName := flag.String("generate-api-key", "", "Create an API key with all permissions under the given name, print it once and exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "NewsDesk - Headless News Publishing Backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_DB_PATH           SQLite database path (default: ./data/newsdesk.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_SERVER_HOST       Bind address (default: localhost)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_ENV               Environment: development|production|test (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_LOG_LEVEL         Log level: debug|info|warn|error (default: info)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_MEDIA_DIR         Uploaded media directory (default: ./media)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_BASE_URL          Public base URL for previews and sitemaps (default: http://localhost:8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  NEWSDESK_DO_SEED           Insert default author and category on first start (default: false)\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nFor more information, see: https://github.com/olegiv/newsdesk-go\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("newsdesk %s\n", version.Get())
		os.Exit(0)
	}

	if *keyName != "" {
		if err := generateAPIKey(*keyName); err != nil {
			slog.Error("generating API key", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// openDatabase opens the configured SQLite database, creating its directory
// if needed, and brings the schema up to date.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// generateAPIKey creates an API key carrying every permission and prints the
// raw key to stdout. The raw key is never stored; only its hash is.
func generateAPIKey(name string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		return fmt.Errorf("generating key material: %w", err)
	}

	permissions, err := json.Marshal(model.AllPermissions())
	if err != nil {
		return fmt.Errorf("encoding permissions: %w", err)
	}

	now := time.Now()
	key, err := store.New(db).CreateAPIKey(context.Background(), store.CreateAPIKeyParams{
		Name:        name,
		KeyHash:     model.HashAPIKey(rawKey),
		KeyPrefix:   prefix,
		Permissions: string(permissions),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("storing API key: %w", err)
	}

	_, _ = fmt.Printf("API key %q created (id %d, all permissions)\n\n", key.Name, key.ID)
	_, _ = fmt.Printf("  %s\n\n", rawKey)
	_, _ = fmt.Println("The key is shown only this once; store it somewhere safe.")

	return nil
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Text logs for humans in development, JSON for collectors elsewhere.
	logOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var baseHandler slog.Handler
	if cfg.IsDevelopment() {
		baseHandler = slog.NewTextHandler(os.Stdout, logOpts)
	} else {
		baseHandler = slog.NewJSONHandler(os.Stdout, logOpts)
	}
	logger := slog.New(baseHandler)
	slog.SetDefault(logger)

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)
	slog.Info("database ready")

	// Upgrade the logger so WARN and ERROR records also land in the events table.
	logger = slog.New(logging.NewEventLogHandler(baseHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		return fmt.Errorf("creating media directory: %w", err)
	}
	blobs := media.NewDiskStore(cfg.MediaDir, logger)

	apiHandler := api.NewHandler(db, blobs, cfg.MaxUploadSize, logger)
	healthHandler := handler.NewHealthHandler(db, cfg.MediaDir)
	crawlerHandler := handler.NewCrawlerHandler(db, cfg, logger)

	site := &seo.SiteConfig{
		SiteName: cfg.SiteName,
		SiteURL:  cfg.BaseURL,
	}
	previewHandler := handler.NewPreviewHandler(
		service.NewNewsService(db, logger),
		service.NewAuthorService(db, logger),
		site, logger,
	)

	// One per-IP limiter shared by every unauthenticated surface; the API view
	// answers with JSON, the preview view with plain text.
	ipLimiter := middleware.NewGlobalRateLimiter(cfg.PublicRateLimit, rateBurst(cfg.PublicRateLimit))
	go ipLimiter.Cleanup(ctx)
	slog.Info("public rate limiter initialized", "rate", cfg.PublicRateLimit, "burst", rateBurst(cfg.PublicRateLimit))

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(chimw.GetHead) // Handle HEAD requests for uptime monitoring
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripTrailingSlash) // Redirect /path/ to /path (301)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))

	// Health check routes (public; authenticated callers get more detail)
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAPIKeyAuth(db))
		r.Get("/health", healthHandler.Health)
		r.Get("/health/live", healthHandler.Liveness)
		r.Get("/health/ready", healthHandler.Readiness)
	})

	// Crawler-facing plain files
	r.Get("/robots.txt", crawlerHandler.Robots)
	r.Get("/sitemap.xml", crawlerHandler.Sitemap)
	r.Get("/.well-known/security.txt", crawlerHandler.SecurityTxt)

	// Public article previews; a key with news:read additionally sees drafts
	r.Group(func(r chi.Router) {
		r.Use(ipLimiter.HTMLMiddleware())
		r.Use(middleware.OptionalAPIKeyAuth(db))
		r.Get("/news/{slug}", previewHandler.Preview)
	})

	// Uploaded media files: cache for 1 week (604800 seconds)
	mediaFiles := middleware.StaticCache(604800)(http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir))))
	r.Handle("/media/*", mediaFiles)

	// REST API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ipLimiter.Middleware())

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			middleware.WriteAPIError(w, http.StatusNotFound, "not_found", "The requested endpoint does not exist", nil)
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			middleware.WriteAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "The endpoint does not support this method", nil)
		})

		r.Get("/status", apiHandler.Status)

		// Read endpoints: published content is public, a key with the matching
		// read permission additionally surfaces drafts.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAPIKeyAuth(db))
			r.Get("/news", apiHandler.ListNews)
			r.Get("/news/{id}", apiHandler.GetNews)
			r.Get("/news/slug/{slug}", apiHandler.GetNewsBySlug)
			r.Get("/categories", apiHandler.ListCategories)
			r.Get("/categories/tree", apiHandler.CategoryTree)
			r.Get("/categories/{id}", apiHandler.GetCategory)
			r.Get("/tags", apiHandler.ListTags)
			r.Get("/tags/{id}", apiHandler.GetTag)
			r.Get("/authors", apiHandler.ListAuthors)
			r.Get("/authors/{id}", apiHandler.GetAuthor)
		})

		// The media inventory is an editorial surface, unlike the files
		// themselves under /media/.
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(db))
			r.Use(middleware.RequireAnyPermission(model.PermissionMediaRead, model.PermissionMediaWrite))
			r.Get("/media", apiHandler.ListMedia)
			r.Get("/media/{id}", apiHandler.GetMedia)
		})

		// Protected endpoints (API key required)
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(db))
			r.Use(middleware.APIRateLimit(cfg.APIRateLimit, rateBurst(cfg.APIRateLimit)))

			r.Get("/auth", apiHandler.AuthInfo)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermissionNewsWrite))
				r.Post("/news", apiHandler.CreateNews)
				r.Put("/news/{id}", apiHandler.UpdateNews)
				r.Delete("/news/{id}", apiHandler.DeleteNews)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermissionTaxonomyWrite))
				r.Post("/categories", apiHandler.CreateCategory)
				r.Put("/categories/{id}", apiHandler.UpdateCategory)
				r.Delete("/categories/{id}", apiHandler.DeleteCategory)
				r.Post("/tags", apiHandler.CreateTag)
				r.Put("/tags/{id}", apiHandler.UpdateTag)
				r.Delete("/tags/{id}", apiHandler.DeleteTag)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermissionAuthorsWrite))
				r.Post("/authors", apiHandler.CreateAuthor)
				r.Put("/authors/{id}", apiHandler.UpdateAuthor)
				r.Delete("/authors/{id}", apiHandler.DeleteAuthor)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermissionMediaWrite))
				r.Post("/media", apiHandler.UploadMedia)
				r.Delete("/media/{id}", apiHandler.DeleteMedia)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(model.PermissionAdmin))
				r.Get("/export", apiHandler.Export)
				r.Post("/import", apiHandler.Import)
				r.Get("/events", apiHandler.ListEvents)
			})
		})
	})
	slog.Info("REST API v1 mounted at /api/v1")

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for large uploads and slow connections
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB max header size
	}

	go func() {
		slog.Info("starting server",
			"addr", cfg.ServerAddr(),
			"env", cfg.Env,
			"version", version.Get().Version,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// rateBurst derives a token-bucket burst from a sustained rate, always
// allowing at least one request.
func rateBurst(rps float64) int {
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	return burst
}
