package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// displayName is the name stored for a member and shown after "@" in messages.
func displayName(user *models.User) string {
	if user.Username != "" {
		return user.Username
	}
	return "user_" + strconv.FormatInt(user.ID, 10)
}

// commandArgs returns the whitespace-separated arguments after the command word.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// reply answers msg in its chat, quoting it when possible. Send failures are logged.
func reply(ctx context.Context, b *bot.Bot, log *slog.Logger, msg *models.Message, text string) {
	params := &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   text,
	}
	if msg.ID != 0 {
		params.ReplyParameters = &models.ReplyParameters{
			MessageID:                msg.ID,
			AllowSendingWithoutReply: true,
		}
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", msg.Chat.ID)
	}
}

// validCommandMessage reports whether the update carries a message with a sender.
func validCommandMessage(ctx context.Context, log *slog.Logger, update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Handler received update with nil message or sender", "update_id", update.ID)
		return false
	}
	return true
}
