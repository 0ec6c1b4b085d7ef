package folio

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name        string `env:"SITE_NAME" envDefault:"Blog"`
	URL         string `env:"SITE_URL" envDefault:"http://localhost:3000"`
	Description string `env:"SITE_DESCRIPTION"`
	Author      string `env:"SITE_AUTHOR"`
	Language    string `env:"SITE_LANGUAGE" envDefault:"en-us"`

	Addr string `env:"ADDR" envDefault:":3000"`
	// StoreDriver selects the Store: "json" (default) or "sqlite".
	StoreDriver string `env:"STORE_DRIVER" envDefault:"json"`
	DataPath    string `env:"DATA_PATH" envDefault:"data/blog-posts.json"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/blog.db"`
	StaticDir   string `env:"STATIC_DIR" envDefault:"public"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	SessionSecret string `env:"SESSION_SECRET"`
	CookieSecure  bool   `env:"COOKIE_SECURE"`

	PostCacheTTL time.Duration `env:"POST_CACHE_TTL" envDefault:"5m"`
	FeedLimit    int           `env:"FEED_LIMIT" envDefault:"20"`
	SitemapPages []string      `env:"SITEMAP_PAGES" envSeparator:"," envDefault:"/about,/contact,/projects,/projects/major-system,/imprint,/media,/blog"`

	// BackupBucket enables off-site backups when set.
	BackupBucket   string `env:"BACKUP_S3_BUCKET"`
	BackupRegion   string `env:"BACKUP_S3_REGION"`
	BackupEndpoint string `env:"BACKUP_S3_ENDPOINT"`
	BackupPrefix   string `env:"BACKUP_S3_PREFIX" envDefault:"backups"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// LoadConfig reads SiteConfig from the environment.
func LoadConfig() (SiteConfig, error) {
	var cfg SiteConfig
	if err := env.Parse(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("config: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// Validate checks the settings needed to serve the site.
func (c SiteConfig) Validate() error {
	if c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	switch c.StoreDriver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("STORE_DRIVER must be json or sqlite, got %q", c.StoreDriver)
	}
	return nil
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Language == "" {
		c.Language = "en-us"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.StoreDriver == "" {
		c.StoreDriver = "json"
	}
	if c.DataPath == "" {
		c.DataPath = "data/blog-posts.json"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "data/blog.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.FeedLimit <= 0 {
		c.FeedLimit = 20
	}
	if c.SitemapPages == nil {
		c.SitemapPages = []string{"/about", "/contact", "/projects", "/projects/major-system", "/imprint", "/media", "/blog"}
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithStore makes the App use store instead of opening one from the config.
func WithStore(s Store) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithLogger replaces the logger built from LogLevel and LogFormat.
func WithLogger(log zerolog.Logger) Option {
	return func(a *App) {
		a.Log = log
	}
}

// WithBackupUploader enables pushing backups off-site.
func WithBackupUploader(up BackupUploader) Option {
	return func(a *App) {
		a.uploader = up
	}
}
