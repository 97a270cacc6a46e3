// Package telegram handles the Telegram bot instance, handler registration and
// the Bot API implementation of the birthday messenger.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/birthdaybot/internal/bot/handlers"
)

// NewTelegramBot creates the go-telegram/bot client for token.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		logger.Error("Failed to create Telegram bot instance", "component", "telegram_bot", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return b, nil
}

// chain wraps handler so that mw[0] runs first.
func chain(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// sortedCommands returns the registry entries ordered by pattern, skipping nil handlers.
func sortedCommands(registered map[string]handlers.RegisteredHandler) []handlers.RegisteredHandler {
	out := make([]handlers.RegisteredHandler, 0, len(registered))
	for _, h := range registered {
		if h.Handler != nil {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out
}

// RegisterHandlers installs every command of the registry on b, wrapped in its middleware.
func RegisterHandlers(b *bot.Bot, logger *slog.Logger, registered map[string]handlers.RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	commands := sortedCommands(registered)
	if len(commands) == 0 {
		log.Warn("No command handlers to register")
		return nil
	}

	for _, h := range commands {
		b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, chain(h.Handler, h.Middleware))
		log.Debug("Registered command", "command", h.Pattern, "middleware_count", len(h.Middleware))
	}
	log.Info("Registered birthday commands", "count", len(commands))
	return nil
}

// PublishCommands sets the command menu Telegram clients show for the bot.
// Commands without a description are left out of the menu.
func PublishCommands(ctx context.Context, b *bot.Bot, logger *slog.Logger, registered map[string]handlers.RegisteredHandler) error {
	if logger == nil {
		logger = slog.Default()
	}

	var menu []models.BotCommand
	for _, h := range sortedCommands(registered) {
		if h.Description == "" {
			continue
		}
		menu = append(menu, models.BotCommand{Command: h.Pattern, Description: h.Description})
	}
	if len(menu) == 0 {
		return nil
	}

	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: menu}); err != nil {
		return fmt.Errorf("failed to publish command menu: %w", err)
	}
	logger.Info("Published command menu", "component", "handler_registry", "count", len(menu))
	return nil
}
