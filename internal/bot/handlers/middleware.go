// Package handlers contains Telegram bot command handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// GroupOnly creates a middleware that lets only group and supergroup messages
// through. Anything else gets the configured "group only" reply and stops there.
func GroupOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil {
				next(ctx, bot, update)
				return
			}

			if isGroupChat(update.Message.Chat) {
				next(ctx, bot, update)
				return
			}

			chatID := update.Message.Chat.ID
			log := deps.Logger.With("middleware", "GroupOnly")
			log.InfoContext(ctx, "Group command used outside a group", "chat_id", chatID, "chat_type", update.Message.Chat.Type)

			reply(ctx, bot, log, update.Message, deps.Config.Messages.GroupOnly)
		}
	}
}

func isGroupChat(chat models.Chat) bool {
	return chat.Type == models.ChatTypeGroup || chat.Type == models.ChatTypeSupergroup
}
