// Package folio is the content engine of a personal portfolio and blog. It
// stores posts in a single JSON document (or an embedded SQLite database),
// enforces slug and id uniqueness, supports whole-collection backup and
// restore, and serves the public blog, RSS feed, sitemap and a password
// protected admin area over Echo.
//
// Users provide their own templ templates via the ViewFuncs struct; folio
// handles the handler logic, middleware and persistence.
package folio

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ViewFuncs holds user-provided templ components that the framework calls
// when rendering pages. This is the inversion-of-control mechanism that
// lets users own and customize all templates.
type ViewFuncs struct {
	Home           func(posts []BlogPost, activeTag string, tags []TagCount, cfg SiteConfig) templ.Component
	Search         func(posts []BlogPost, query string, cfg SiteConfig) templ.Component
	Post           func(post BlogPost, related []BlogPost, cfg SiteConfig) templ.Component
	AdminLogin     func(showError bool, csrfToken string) templ.Component
	AdminDashboard func(posts []BlogPost, message string, csrfToken string) templ.Component
	AdminEditor    func(post BlogPost, csrfToken string) templ.Component
	AdminImages    func(images []Image, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// App is the central folio application. It wires together the store,
// repository, cache, handlers, middleware, and user-provided templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Repo   *Repository
	Cache  *PostCache
	Views  ViewFuncs
	Log    zerolog.Logger

	store        Store
	uploader     BackupUploader
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	initialized  bool
}

// New creates a new folio App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
		Log:    NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout),
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store and registers middleware and routes without starting
// the server. Start calls it; tests call it directly.
func (a *App) Init() error {
	if a.initialized {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("folio: %w", err)
	}

	if a.store == nil {
		store, err := OpenStore(a.Config)
		if err != nil {
			return fmt.Errorf("folio: init store: %w", err)
		}
		a.store = store
	}

	a.Repo = NewRepository(a.store, WithRepositoryLogger(a.Log))
	a.Cache = NewPostCache(a.Repo, a.Config.PostCacheTTL)
	a.Repo.SetInvalidator(InvalidatorFunc(func(slugs ...string) {
		a.Cache.Invalidate(slugs...)
		a.Log.Debug().Strs("slugs", slugs).Msg("post cache invalidated")
	}))

	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	if a.uploader == nil && a.Config.BackupBucket != "" {
		up, err := NewS3Uploader(context.Background(), a.Config.BackupRegion, a.Config.BackupBucket, a.Config.BackupEndpoint, a.Config.BackupPrefix)
		if err != nil {
			return fmt.Errorf("folio: init backups: %w", err)
		}
		a.uploader = up
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// Start initializes the app and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.Log.Info().Str("addr", a.Config.Addr).Str("store", a.Config.StoreDriver).Msg("starting server")
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully and releases the store.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *App) setupRoutes() {
	e := a.Echo

	// User's static assets
	e.Static("/public", a.Config.StaticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/blog/", a.handleHome)
	e.GET("/blog/search/", a.handleSearch)
	e.GET("/blog/tag/:tag/", a.handleTag)
	e.GET("/blog/:slug/", a.handlePost)

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	admin := e.Group("/admin", a.requireAdmin)
	admin.GET("/editor/", a.handleAdminEditor)
	admin.GET("/editor/:id/", a.handleAdminEditor)
	admin.POST("/save/", a.handleAdminSave)
	admin.POST("/post/:id/publish/", a.handleAdminPublish)
	admin.DELETE("/post/:id/", a.handleAdminDelete)
	admin.GET("/backup/", a.handleBackupDownload)
	admin.POST("/backup/remote/", a.handleBackupRemote)
	admin.POST("/restore/", a.handleRestore)
	admin.GET("/images/", a.handleImageList)
	admin.POST("/images/upload/", a.handleImageUpload)
	admin.DELETE("/images/:filename/", a.handleImageDelete)
	admin.GET("/metrics/", echo.WrapHandler(promhttp.Handler()))
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
