package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewGroupJoinHandler returns the default update handler. It registers a group
// as soon as the bot is added to it, so the daily scan covers the group before
// anyone runs a command there. Other unmatched updates are ignored.
func NewGroupJoinHandler(deps HandlerDeps) bot.HandlerFunc {
	return groupJoinHandler{deps}.Handle
}

type groupJoinHandler struct {
	deps HandlerDeps
}

func (h groupJoinHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	member := update.MyChatMember
	if member == nil || !isGroupChat(member.Chat) {
		return
	}

	switch member.NewChatMember.Type {
	case models.ChatMemberTypeMember, models.ChatMemberTypeAdministrator:
	default:
		return
	}

	log := h.deps.Logger.With("handler", "group_join", "chat_id", member.Chat.ID)
	added, err := h.deps.Store.RegisterGroupIfAbsent(ctx, member.Chat.ID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to register group", "error", err)
		return
	}
	if added {
		log.InfoContext(ctx, "Registered group after bot was added", "added_by", member.From.ID)
	}
}
