// Package app wires the bot together: infrastructure via the core
// bootstrap, then the domain components on top of it.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/kinobot/core/bootstrap"
	"github.com/m3rciful/kinobot/core/logger"
	tg "github.com/m3rciful/kinobot/core/telegram"
	"github.com/m3rciful/kinobot/core/telegram/state"
	"github.com/m3rciful/kinobot/internal/access"
	"github.com/m3rciful/kinobot/internal/bot"
	"github.com/m3rciful/kinobot/internal/broadcast"
	"github.com/m3rciful/kinobot/internal/dialog"
	"github.com/m3rciful/kinobot/internal/repository"
	"github.com/m3rciful/kinobot/internal/session"
)

// App owns the wired components and the database handle.
type App struct {
	cfg       *Config
	db        *sqlx.DB
	messenger *bot.Messenger
	handlers  *bot.Handlers
}

// New bootstraps infrastructure and builds the component graph.
func New(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config provided")
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	repo := repository.New(res.DB)
	messenger := bot.NewMessenger()

	authority := session.New(repo, cfg.Admin.Password, logger.Sess)
	gate := access.New(repo, messenger, logger.Gate)
	caster := broadcast.New(repo, messenger, broadcast.Options{
		Delay: cfg.SendDelay(),
		Batch: cfg.Broadcast.ProgressBatch,
	}, logger.Cast)
	engine := dialog.New(state.NewMemoryManager(), repo, messenger, authority, caster, logger.Dialog)

	return &App{
		cfg:       cfg,
		db:        res.DB,
		messenger: messenger,
		handlers:  bot.NewHandlers(repo, gate, authority, engine, messenger),
	}, nil
}

// TelegramRunOptions exposes the bot runtime configuration.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	opts, err := bot.BuildRunOptions(a.cfg.CoreConfig(), a.handlers)
	if err != nil {
		return tg.RunOptions{}, err
	}
	opts.OnStart = func(_ context.Context, rt tg.Runtime) error {
		a.messenger.Bind(rt.Bot)
		return nil
	}
	opts.OnStop = func(context.Context, tg.Runtime) error {
		return a.db.Close()
	}
	return opts, nil
}
