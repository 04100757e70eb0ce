// Package app assembles the parts bot: storage, the intake conversation,
// order claims and the Telegram runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	"github.com/m3rciful/partsbot/core/bootstrap"
	"github.com/m3rciful/partsbot/core/logger"
	coretelegram "github.com/m3rciful/partsbot/core/telegram"
	"github.com/m3rciful/partsbot/core/telegram/router"
	"github.com/m3rciful/partsbot/core/telegram/state"
	"github.com/m3rciful/partsbot/internal/claims"
	"github.com/m3rciful/partsbot/internal/config"
	"github.com/m3rciful/partsbot/internal/intake"
	"github.com/m3rciful/partsbot/internal/notify"
	"github.com/m3rciful/partsbot/internal/ops"
	"github.com/m3rciful/partsbot/internal/orders"

	tele "gopkg.in/telebot.v4"
)

const component = "app"

var errNotWired = errors.New("app: telegram runtime not wired")

// markupEditor is the part of *tele.Bot used to drop the claim button.
type markupEditor interface {
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
}

// App owns the bot's long-lived state.
type App struct {
	cfg      *config.Config
	store    orders.Store
	sessions *state.Store[intake.Draft]
	claimReg *claims.Registry
	registry *coretelegram.Registry

	engine *intake.Engine
	coord  *claims.Coordinator
	editor markupEditor
	exec   notify.Executor

	sweeper *cron.Cron
	ops     *ops.Server
	started time.Time
}

// Bootstrap initializes logging and storage for cfg and returns the App.
func Bootstrap(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.DatabaseConfig(),
		Migrations: orders.Migrations,
	})
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(cfg, res.DB)
	if err != nil {
		return nil, err
	}
	return New(cfg, store), nil
}

// OpenStore returns the order store selected by cfg.Storage. db must be open
// and migrated for the SQL drivers and is ignored for the file backend.
func OpenStore(cfg *config.Config, db *sqlx.DB) (orders.Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageFile, "":
		s, err := orders.OpenFile(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoragePostgres, config.StorageSQLite:
		if db == nil {
			return nil, fmt.Errorf("app: storage driver %q needs a database", cfg.Storage.Driver)
		}
		return orders.NewSQLStore(db), nil
	}
	return nil, fmt.Errorf("app: unsupported storage driver %q", cfg.Storage.Driver)
}

// New builds an App around an open store. Messaging is wired later, once the
// bot exists.
func New(cfg *config.Config, store orders.Store) *App {
	a := &App{
		cfg:      cfg,
		store:    store,
		sessions: state.NewStore[intake.Draft](),
		claimReg: claims.NewRegistry(),
		registry: coretelegram.NewRegistry(),
		started:  time.Now(),
	}
	a.registerHandlers()
	return a
}

// wire connects the conversation and claim services to a delivery channel.
func (a *App) wire(r notify.Router, editor markupEditor, exec notify.Executor) error {
	engine, err := intake.NewEngine(intake.Options{
		Sessions:     a.sessions,
		Store:        a.store,
		Router:       r,
		Admins:       a.cfg.Telegram.AdminIDs,
		SkipKeywords: a.cfg.Intake.SkipKeywords,
	})
	if err != nil {
		return err
	}
	coord, err := claims.NewCoordinator(claims.Options{
		Store:    a.store,
		Router:   r,
		Registry: a.claimReg,
		Admins:   a.cfg.Telegram.AdminIDs,
	})
	if err != nil {
		return err
	}
	a.engine, a.coord = engine, coord
	a.editor, a.exec = editor, exec
	return nil
}

// TelegramRunOptions implements the runner's TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()
	return coretelegram.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(core, nil),
		Routes:      a.routes(),
		Setup: func(ctx context.Context, rt coretelegram.Runtime) ([]coretelegram.Route, error) {
			r := notify.NewTelegramRouter(rt.Bot, rt.Dispatcher)
			return nil, a.wire(r, rt.Bot, rt.Dispatcher)
		},
		OnStart: a.start,
		OnStop:  a.stop,
	}, nil
}

func (a *App) routes() []coretelegram.Route {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		IsAdmin:       a.cfg.Telegram.IsAdmin,
		OnAdminReject: a.onAdminReject,
	})
	routes = append(routes, router.TextRoutes(conversation{a}, a.registry, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	return routes
}

func (a *App) start(ctx context.Context, _ coretelegram.Runtime) error {
	sweeper, err := state.ScheduleSweep(a.cfg.Sessions.SweepSchedule, a.cfg.Sessions.TTL, a.sessions)
	if err != nil {
		return err
	}
	a.sweeper = sweeper

	if addr := a.cfg.Ops.Listen; addr != "" {
		srv, err := ops.Start(addr, ops.NewHandler(func(ctx context.Context) (any, error) {
			return a.Stats(ctx)
		}))
		if err != nil {
			a.stopSweeper()
			return err
		}
		a.ops = srv
	}

	logger.Info(ctx, component, "services.started",
		slog.Int("admins", len(a.cfg.Telegram.AdminIDs)),
		slog.String("storage", a.cfg.Storage.Driver),
		slog.Duration("session_ttl", a.cfg.Sessions.TTL),
		slog.Bool("ops", a.ops != nil),
	)
	return nil
}

func (a *App) stop(ctx context.Context, _ coretelegram.Runtime) error {
	a.stopSweeper()
	var errs []error
	if a.ops != nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		errs = append(errs, a.ops.Shutdown(sctx))
		cancel()
		a.ops = nil
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("app: close store: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) stopSweeper() {
	if a.sweeper == nil {
		return
	}
	<-a.sweeper.Stop().Done()
	a.sweeper = nil
}
