package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/birthdaybot/internal/birthday"
)

// NewAddBirthdayHandler returns a handler for the /add_birthday command.
// It must be sent as a reply to the member's message, with a dd.mm.yyyy date.
func NewAddBirthdayHandler(deps HandlerDeps) bot.HandlerFunc {
	return addBirthdayHandler{deps}.Handle
}

type addBirthdayHandler struct {
	deps HandlerDeps
}

func (h addBirthdayHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "add_birthday")
	if !validCommandMessage(ctx, log, update) {
		return
	}

	msg := update.Message
	msgs := h.deps.Config.Messages
	groupID := msg.Chat.ID

	if msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil {
		log.InfoContext(ctx, "Add birthday without reply target", "chat_id", groupID)
		reply(ctx, b, log, msg, msgs.AddUsage)
		return
	}

	args := commandArgs(msg.Text)
	if len(args) != 1 {
		log.InfoContext(ctx, "Add birthday with wrong argument count", "chat_id", groupID, "args", len(args))
		reply(ctx, b, log, msg, msgs.AddUsage)
		return
	}

	date, err := birthday.ParseDisplay(args[0])
	if err != nil {
		log.InfoContext(ctx, "Add birthday with invalid date", "chat_id", groupID, "input", args[0])
		reply(ctx, b, log, msg, msgs.AddInvalidDate)
		return
	}

	target := msg.ReplyToMessage.From
	name := displayName(target)
	log = log.With("chat_id", groupID, "member_id", target.ID)

	status, err := h.deps.Members.GetMembershipStatus(ctx, groupID, target.ID)
	if err != nil {
		log.WarnContext(ctx, "Failed to check membership", "error", err)
		reply(ctx, b, log, msg, msgs.AddMembershipError)
		return
	}
	if !status.InGroup() {
		log.InfoContext(ctx, "Refusing birthday for user outside the group", "status", status)
		reply(ctx, b, log, msg, msgs.AddNotMember)
		return
	}

	if _, err := h.deps.Store.RegisterGroupIfAbsent(ctx, groupID); err != nil {
		log.ErrorContext(ctx, "Failed to register group", "error", err)
		reply(ctx, b, log, msg, msgs.GeneralError)
		return
	}
	if err := h.deps.Store.UpsertMember(ctx, groupID, target.ID, name, date); err != nil {
		log.ErrorContext(ctx, "Failed to save birthday", "error", err)
		reply(ctx, b, log, msg, msgs.GeneralError)
		return
	}

	log.InfoContext(ctx, "Birthday saved", "birthday", date.String())
	reply(ctx, b, log, msg, fmt.Sprintf(msgs.AddSuccessFmt, name, date.Display()))
}
