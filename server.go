package frummy

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/StuMason/frummy-supabase/config"
	"github.com/StuMason/frummy-supabase/sessionstore"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// App wires the whole template together: identity client, session
// transport, guard, controllers, views.
type App struct {
	config   *config.BaseConfig
	logger   *glog.BaseLogger
	bunDB    *bun.DB
	identity *IdentityClient
	store    *StoreClient
	sessions *RouteSessions
	records  sessionstore.Store
	viewsFS  fs.FS
	srv      router.Server[*fiber.App]
}

type AppOption func(*App) *App

// WithAppViews overrides the on disk view root with an embedded tree, the
// production builds ship their templates inside the binary.
func WithAppViews(views fs.FS) AppOption {
	return func(a *App) *App {
		a.viewsFS = views
		return a
	}
}

func (a *App) Config() *config.BaseConfig { return a.config }

func (a *App) GetLogger(name string) glog.Logger { return a.logger.GetLogger(name) }

func (a *App) Identity() IdentityService { return a.identity }

func (a *App) Sessions() *RouteSessions { return a.sessions }

func (a *App) Server() router.Server[*fiber.App] { return a.srv }

func NewApp(cfg *config.BaseConfig, lgr *glog.BaseLogger, opts ...AppOption) (*App, error) {
	app := &App{
		config: cfg,
		logger: lgr,
	}

	for _, opt := range opts {
		app = opt(app)
	}

	setup := []func(context.Context) error{
		app.withIdentity,
		app.withPersistence,
		app.withSessions,
		app.withHTTPServer,
	}

	ctx := context.Background()
	for _, step := range setup {
		if err := step(ctx); err != nil {
			return nil, err
		}
	}

	return app, nil
}

func (a *App) withIdentity(_ context.Context) error {
	a.identity = NewIdentityClient(a.config).
		WithLogger(routerLogger{a.GetLogger("identity")})
	a.store = NewStoreClient(a.config)
	return nil
}

// withPersistence picks the session record backend: sqlite when a DSN is
// configured, in process memory otherwise.
func (a *App) withPersistence(ctx context.Context) error {
	dsn := a.config.Persistence.DSN
	if dsn == "" {
		a.records = sessionstore.NewMemoryStore()
		return nil
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return err
	}

	a.bunDB = bun.NewDB(sqldb, sqlitedialect.New())

	store := sessionstore.NewBunStore(a.bunDB)
	if err := store.Init(ctx); err != nil {
		return err
	}

	a.records = store
	return nil
}

func (a *App) withSessions(_ context.Context) error {
	sessions, err := NewRouteSessions(a.config, a.identity, a.records)
	if err != nil {
		return err
	}
	a.sessions = sessions.WithLogger(routerLogger{a.GetLogger("sessions")})
	return nil
}

func (a *App) withHTTPServer(_ context.Context) error {
	engine, err := a.viewEngine()
	if err != nil {
		return err
	}

	errorLogger := a.GetLogger("errors")

	srv := router.NewFiberAdapter(func(fa *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
			ErrorHandler:      boundaryErrorHandler(errorLogger),
		}))
	})

	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	srv.Router().Get("/", func(ctx router.Context) error {
		session, _ := a.sessions.Resolve(ctx)
		if session.Valid() {
			ctx.Locals(DefaultSessionKey, session)
		}
		return ctx.Render("home", MergeSessionData(ctx, router.ViewContext{
			"title": a.config.App.Name,
		}))
	})

	RegisterAuthRoutes(srv.Router(),
		WithControllerIdentity(a.identity),
		WithControllerSessions(a.sessions),
		WithControllerLogger(routerLogger{a.GetLogger("auth")}),
	)

	guard := NewGuard(a.sessions, a.config).
		WithLogger(routerLogger{a.GetLogger("guard")})
	guard.SetReturnPath = a.sessions.SetRedirect

	protected := srv.Router().Group("/app")
	protected.Use(guard.Protect())

	protected.Get("/", func(ctx router.Context) error {
		return ctx.Render("dashboard", MergeSessionData(ctx, router.ViewContext{
			"title": "Dashboard",
		}))
	}).SetName("dashboard.get")

	RegisterResourceRoutes(protected, a.store,
		WithResourceLogger(routerLogger{a.GetLogger("resources")}),
	)

	a.registerAssets(srv)

	a.srv = srv
	return nil
}

func (a *App) viewEngine() (fiber.Views, error) {
	if a.viewsFS != nil {
		sub, err := fs.Sub(a.viewsFS, a.config.Views.Dir)
		if err != nil {
			return nil, fmt.Errorf("unable to scope embedded views to %q: %w", a.config.Views.Dir, err)
		}
		engine := django.NewFileSystem(http.FS(sub), ".html")
		if err := engine.Load(); err != nil {
			return nil, err
		}
		return engine, nil
	}

	engine := django.New(a.config.Views.Dir, ".html")
	engine.Reload(a.config.IsDevelopment())
	if err := engine.Load(); err != nil {
		return nil, err
	}
	return engine, nil
}

func (a *App) registerAssets(srv router.Server[*fiber.App]) {
	if a.viewsFS != nil {
		if assets, err := fs.Sub(a.viewsFS, a.config.Views.Assets); err == nil {
			srv.Router().Static("/assets", ".", router.Static{
				FS:   assets,
				Root: ".",
			})
			return
		}
	}

	srv.Router().Static("/assets", a.config.Views.Assets, router.Static{})
}

// Serve blocks on the fiber listener.
func (a *App) Serve() error {
	return a.srv.Serve(fmt.Sprintf(":%d", a.config.App.Port))
}

func (a *App) Close() error {
	if a.bunDB != nil {
		return a.bunDB.Close()
	}
	return nil
}

// boundaryErrorHandler is the template's error boundary. Unmatched routes
// surface here as fiber.ErrNotFound and get the 404 screen, anything else
// gets the 500 screen with a retry link back to the failed path.
func boundaryErrorHandler(lgr glog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var ferr *fiber.Error
		if stderrors.As(err, &ferr) {
			code = ferr.Code
		}

		if code == fiber.StatusNotFound {
			return c.Status(code).Render("errors/404", fiber.Map{
				"path": c.OriginalURL(),
			})
		}

		lgr.Error("unhandled request error", "path", c.OriginalURL(), "error", err)

		if rerr := c.Status(code).Render("errors/500", fiber.Map{
			"message": err.Error(),
			"path":    c.OriginalURL(),
		}); rerr != nil {
			return c.Status(code).SendString("Internal Server Error")
		}

		return nil
	}
}

// routerLogger adapts a glog logger to the template's small Logger shape.
type routerLogger struct {
	lgr glog.Logger
}

func (l routerLogger) Debug(format string, args ...any) { l.lgr.Debug(format, args...) }
func (l routerLogger) Info(format string, args ...any)  { l.lgr.Info(format, args...) }
func (l routerLogger) Warn(format string, args ...any)  { l.lgr.Warn(format, args...) }
func (l routerLogger) Error(format string, args ...any) { l.lgr.Error(format, args...) }
