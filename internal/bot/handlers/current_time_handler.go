package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewCurrentTimeHandler returns a handler for the /current_time command.
// It reports the clock the daily scan uses.
func NewCurrentTimeHandler(deps HandlerDeps) bot.HandlerFunc {
	return currentTimeHandler{deps}.Handle
}

type currentTimeHandler struct {
	deps HandlerDeps
}

func (h currentTimeHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "current_time")
	if !validCommandMessage(ctx, log, update) {
		return
	}

	now := h.deps.now()
	log.InfoContext(ctx, "Handling /current_time command", "chat_id", update.Message.Chat.ID, "now", now)

	text := fmt.Sprintf(h.deps.Config.Messages.CurrentTimeFmt, now.Format("2006-01-02 15:04:05"), now.Location().String())
	reply(ctx, b, log, update.Message, text)
}
