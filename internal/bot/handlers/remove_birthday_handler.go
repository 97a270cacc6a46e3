package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewRemoveBirthdayHandler returns a handler for the /remove_birthday command.
func NewRemoveBirthdayHandler(deps HandlerDeps) bot.HandlerFunc {
	return removeBirthdayHandler{deps}.Handle
}

type removeBirthdayHandler struct {
	deps HandlerDeps
}

func (h removeBirthdayHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "remove_birthday")
	if !validCommandMessage(ctx, log, update) {
		return
	}

	msg := update.Message
	msgs := h.deps.Config.Messages
	groupID := msg.Chat.ID

	if msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil {
		log.InfoContext(ctx, "Remove birthday without reply target", "chat_id", groupID)
		reply(ctx, b, log, msg, msgs.RemoveUsage)
		return
	}

	target := msg.ReplyToMessage.From
	name := displayName(target)
	log = log.With("chat_id", groupID, "member_id", target.ID)

	if _, err := h.deps.Store.RegisterGroupIfAbsent(ctx, groupID); err != nil {
		log.ErrorContext(ctx, "Failed to register group", "error", err)
		reply(ctx, b, log, msg, msgs.GeneralError)
		return
	}

	removed, err := h.deps.Store.RemoveMember(ctx, groupID, target.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to remove birthday", "error", err)
		reply(ctx, b, log, msg, msgs.GeneralError)
		return
	}

	if !removed {
		reply(ctx, b, log, msg, fmt.Sprintf(msgs.RemoveNotFoundFmt, name))
		return
	}

	log.InfoContext(ctx, "Birthday removed")
	reply(ctx, b, log, msg, fmt.Sprintf(msgs.RemoveSuccessFmt, name))
}
