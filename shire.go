// Package shire is the server behind The Shire: a blog with search and
// pagination, static pages, a contact form and an admin portal for posts,
// images and visitor messages.
//
// Sites provide their own templ components via the ViewFuncs struct, and
// shire handles the handler logic, middleware and database operations.
package shire

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// App is the central shire application. It wires together the store,
// cache, handlers, middleware and site-provided templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *PostCache
	Views  ViewFuncs
	Logger zerolog.Logger

	loginLimiter   *RateLimiter
	contactLimiter *RateLimiter
	customRoutes   []func(*App)
	staticDir      string
	loggerSet      bool
	ownsStore      bool
	setup          bool
}

// New creates a shire App with the given configuration and views.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config:    cfg,
		Echo:      e,
		Views:     views,
		staticDir: "public",
	}
	for _, opt := range opts {
		opt(a)
	}
	if !a.loggerSet {
		a.Logger = NewLogger(cfg, os.Stderr)
	}
	return a
}

// Setup opens the store (unless one was supplied), builds the cache and
// limiters and registers middleware and routes. It is safe to call more
// than once; Start calls it.
func (a *App) Setup() error {
	if a.setup {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("shire: invalid config: %w", err)
	}
	if a.Store == nil {
		store, err := OpenStore(a.Config.DatabaseDriver, a.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("shire: init store: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	}

	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.loginLimiter = NewRateLimiter(5, time.Minute)
	a.contactLimiter = NewRateLimiter(5, 10*time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.setup = true
	return nil
}

// Start sets the app up and serves until ctx is cancelled, then shuts the
// server down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", a.Config.Addr).Str("driver", a.Store.Driver()).Msg("listening")
		errCh <- a.Echo.Start(a.Config.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Logger.Info().Msg("shutting down")
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shire: shutdown: %w", err)
	}
	return nil
}

// ServeHTTP lets the app be used as an http.Handler once Setup has run.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Echo.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded assets (editor.js, shire.css) fall through to the site's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(embeddedFS))))
	e.GET("/public/editor.js", embeddedHandler)
	e.GET("/public/shire.css", embeddedHandler)
	e.Static("/public", a.staticDir)

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.GET("/", a.handleLanding)
	e.GET("/about/", a.handleAbout)
	e.GET("/contact/", a.handleContact)
	e.POST("/contact/", a.handleContactSubmit)
	e.GET("/blog/", a.handleBlog)
	e.GET("/blog/:slug/", a.handlePost)

	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", a.handleAdminLogout)
	admin := e.Group("/admin", a.requireAuthHTML)
	admin.GET("/post/:id/", a.handleAdminPost)
	admin.POST("/save/", a.handleAdminSave)
	admin.DELETE("/post/:id/", a.handleAdminDelete)
	admin.GET("/images/", a.handleImageList)
	admin.POST("/images/upload/", a.handleImageUpload)
	admin.DELETE("/images/:filename/", a.handleImageDelete)

	api := e.Group("/api")
	api.GET("/login", a.handleLoginRedirect)
	api.GET("/logout", a.handleLogoutRedirect)
	api.GET("/callback", a.handleCallback)
	api.GET("/auth/user", a.handleAuthUser, a.requireAuthAPI)

	api.GET("/blog-posts", a.handleAPIListPosts)
	api.GET("/blog-posts/search/:query", a.handleAPISearchPosts)
	api.GET("/blog-posts/slug/:slug", a.handleAPIGetPostBySlug)
	api.GET("/blog-posts/:id", a.handleAPIGetPost)
	api.POST("/blog-posts", a.handleAPICreatePost, a.requireAuthAPI)
	api.PUT("/blog-posts/:id", a.handleAPIUpdatePost, a.requireAuthAPI)
	api.DELETE("/blog-posts/:id", a.handleAPIDeletePost, a.requireAuthAPI)

	api.POST("/contact-messages", a.handleAPICreateContact)
	api.GET("/contact-messages", a.handleAPIListContacts, a.requireAuthAPI)

	api.POST("/editor/insert", a.handleAPIEditorInsert, a.requireAuthAPI)
	api.POST("/editor/preview", a.handleAPIEditorPreview, a.requireAuthAPI)
}

// Close releases the limiters and, when the app opened it, the store.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	if a.contactLimiter != nil {
		a.contactLimiter.Close()
	}
	if a.ownsStore && a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
