// Package main contains the entrypoint for the birthday bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/birthdaybot/internal/birthday"
	"github.com/edgard/birthdaybot/internal/bot"
	"github.com/edgard/birthdaybot/internal/bot/handlers"
	"github.com/edgard/birthdaybot/internal/bot/tasks"
	"github.com/edgard/birthdaybot/internal/config"
	"github.com/edgard/birthdaybot/internal/database"
	"github.com/edgard/birthdaybot/internal/gemini"
	"github.com/edgard/birthdaybot/internal/logger"
	"github.com/edgard/birthdaybot/internal/resilience"
	"github.com/edgard/birthdaybot/internal/scan"
	"github.com/edgard/birthdaybot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// telegram, scan engine, scheduler), handles graceful shutdown, and returns an
// exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		log.Error("Invalid scheduler timezone", "error", err)
		return 1
	}
	leapPolicy, err := birthday.ParseLeapPolicy(cfg.Scan.LeapPolicy)
	if err != nil {
		log.Error("Invalid leap policy", "error", err)
		return 1
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Location: loc,
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewGroupJoinHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = cfg.Telegram.RateLimitRetries
	retryCfg.MaxDelay = cfg.Telegram.RateLimitMaxWait
	messenger := telegram.NewMessenger(tg, telegram.WithLogger(log), telegram.WithRetry(retryCfg))
	hDeps.Members = messenger

	commands := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, commands); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.PublishCommands(ctx, tg, log, commands); err != nil {
		log.Warn("Failed to publish command menu", "error", err)
	}

	execOpts := []scan.ExecutorOption{scan.WithActionTimeout(cfg.Scan.ActionTimeout)}
	if cfg.Gemini.Enabled() {
		greeter, err := gemini.NewGreeter(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini greeter", "error", err)
			return 1
		}
		execOpts = append(execOpts, scan.WithGreeter(greeter))
	} else {
		log.Info("Gemini API key not set, using template birthday greetings")
	}

	executor := scan.NewExecutor(log, messenger, scan.Templates{
		Eve:          cfg.Messages.EveFmt,
		Birthday:     cfg.Messages.BirthdayFmt,
		InviteDM:     cfg.Messages.InviteDMFmt,
		InviteFailed: cfg.Messages.InviteFailedFmt,
		Restored:     cfg.Messages.RestoredFmt,
	}, execOpts...)

	engine := scan.NewEngine(log, store, executor, scan.EngineConfig{
		LeapPolicy:        leapPolicy,
		MaxParallelGroups: cfg.Scan.MaxParallelGroups,
		Dedupe:            cfg.Scan.Dedupe,
	})

	tDeps := tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Scanner:  engine,
		Location: loc,
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
