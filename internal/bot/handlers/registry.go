package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a command handler with its middleware.
// Description is shown in the Telegram command menu; empty hides the command there.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Description string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands initializes and returns a map of all available bot commands.
// Birthday commands are wrapped with GroupOnly.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Description: "Introduce the bot",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/help"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "help",
		Description: "List commands",
		Handler:     NewHelpHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/current_time"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "current_time",
		Description: "Show the bot's clock",
		Handler:     NewCurrentTimeHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}

	groupMiddleware := []tgbot.Middleware{GroupOnly(deps)}

	handlers["/add_birthday"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "add_birthday",
		Description: "Reply to a member: save their birthday (dd.mm.yyyy)",
		Handler:     NewAddBirthdayHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  groupMiddleware,
	}
	handlers["/remove_birthday"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "remove_birthday",
		Description: "Reply to a member: forget their birthday",
		Handler:     NewRemoveBirthdayHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  groupMiddleware,
	}
	handlers["/list_birthdays"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "list_birthdays",
		Description: "Show this group's birthdays",
		Handler:     NewListBirthdaysHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  groupMiddleware,
	}

	return handlers
}
