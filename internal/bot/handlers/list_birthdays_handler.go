package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/birthdaybot/internal/birthday"
	"github.com/edgard/birthdaybot/internal/database"
)

// NewListBirthdaysHandler returns a handler for the /list_birthdays command.
func NewListBirthdaysHandler(deps HandlerDeps) bot.HandlerFunc {
	return listBirthdaysHandler{deps}.Handle
}

type listBirthdaysHandler struct {
	deps HandlerDeps
}

func (h listBirthdaysHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "list_birthdays")
	if !validCommandMessage(ctx, log, update) {
		return
	}

	msg := update.Message
	msgs := h.deps.Config.Messages
	groupID := msg.Chat.ID
	log = log.With("chat_id", groupID)

	if _, err := h.deps.Store.RegisterGroupIfAbsent(ctx, groupID); err != nil {
		log.ErrorContext(ctx, "Failed to register group", "error", err)
		reply(ctx, b, log, msg, msgs.GeneralError)
		return
	}

	members, err := h.deps.Store.ListMembers(ctx, groupID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list birthdays", "error", err)
		reply(ctx, b, log, msg, msgs.GeneralError)
		return
	}

	if len(members) == 0 {
		reply(ctx, b, log, msg, msgs.ListEmpty)
		return
	}

	policy, err := birthday.ParseLeapPolicy(h.deps.Config.Scan.LeapPolicy)
	if err != nil {
		policy = birthday.LeapFeb28
	}
	today := birthday.FromTime(h.deps.now())

	var sb strings.Builder
	sb.WriteString(msgs.ListHeader)
	for _, m := range sortByUpcoming(members, today, policy) {
		date := m.RawBirthday
		if m.BirthdayErr == nil {
			date = m.Birthday.Display()
		}
		sb.WriteString(fmt.Sprintf(msgs.ListEntryFmt, m.DisplayName, date))
		sb.WriteString("\n")
	}

	log.DebugContext(ctx, "Listing birthdays", "count", len(members))
	reply(ctx, b, log, msg, strings.TrimRight(sb.String(), "\n"))
}

// sortByUpcoming orders members by days until their next birthday, then by
// name. Members with unreadable birthdays go last.
func sortByUpcoming(members []database.Member, today birthday.Date, policy birthday.LeapPolicy) []database.Member {
	type entry struct {
		member database.Member
		days   int
	}

	entries := make([]entry, 0, len(members))
	for _, m := range members {
		days := -1
		if m.BirthdayErr == nil {
			days = birthday.Evaluate(today, m.Birthday, policy).DaysToNext
		}
		entries = append(entries, entry{member: m, days: days})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if (a.days < 0) != (b.days < 0) {
			return b.days < 0
		}
		if a.days != b.days {
			return a.days < b.days
		}
		return a.member.DisplayName < b.member.DisplayName
	})

	out := make([]database.Member, len(entries))
	for i, e := range entries {
		out[i] = e.member
	}
	return out
}
