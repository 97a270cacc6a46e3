// Package logger provides structured logging for the birthday bot.
// It uses Go's slog package with configurable levels and formats, and adapts
// slog to the Telegram update pipeline and the gocron scheduler.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ParseLevel maps a configured level name to a slog level. Unknown names
// fall back to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a new slog Logger writing to stdout with the specified
// level and format, and installs it as the default logger.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	logger := newLogger(os.Stdout, levelStr, jsonOutput)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelStr),
	}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Middleware creates a logging middleware for the Telegram bot.
// It logs every incoming update with its chat, sender and a text preview,
// and how long the handler took.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()

			logEntry := log.With("update_id", update.ID)

			updateType := "other"
			if msg := update.Message; msg != nil {
				updateType = "message"
				var userID int64
				if msg.From != nil {
					userID = msg.From.ID
				}
				logEntry = logEntry.With(
					"message_id", msg.ID,
					"chat_id", msg.Chat.ID,
					"chat_type", msg.Chat.Type,
					"user_id", userID,
					"text_preview", truncateString(msg.Text, 50),
				)
				if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
					logEntry = logEntry.With("reply_to_user_id", msg.ReplyToMessage.From.ID)
				}
			} else if member := update.MyChatMember; member != nil {
				updateType = "my_chat_member"
				logEntry = logEntry.With(
					"chat_id", member.Chat.ID,
					"user_id", member.From.ID,
				)
			}
			logEntry = logEntry.With("update_type", updateType)

			logEntry.DebugContext(ctx, "Processing update")

			next(ctx, b, update)

			logEntry.InfoContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}

// GocronAdapter forwards gocron's internal logging to slog.
type GocronAdapter struct {
	log *slog.Logger
}

var _ gocron.Logger = (*GocronAdapter)(nil)

// NewGocronAdapter wraps logger for use with gocron.WithLogger.
func NewGocronAdapter(logger *slog.Logger) *GocronAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &GocronAdapter{log: logger.With("component", "gocron")}
}

func (l *GocronAdapter) Debug(msg string, args ...any) {
	l.log.Debug(msg, toSlogArgs(args)...)
}

func (l *GocronAdapter) Info(msg string, args ...any) {
	l.log.Info(msg, toSlogArgs(args)...)
}

func (l *GocronAdapter) Warn(msg string, args ...any) {
	l.log.Warn(msg, toSlogArgs(args)...)
}

func (l *GocronAdapter) Error(msg string, args ...any) {
	l.log.Error(msg, toSlogArgs(args)...)
}

// toSlogArgs turns gocron's loose key/value list into slog pairs.
func toSlogArgs(args []any) []any {
	slogArgs := make([]any, 0, len(args))

	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			key, ok := args[i].(string)
			if !ok {
				key = fmt.Sprintf("%v", args[i])
			}
			slogArgs = append(slogArgs, key, args[i+1])
		} else {
			slogArgs = append(slogArgs, "value", args[i])
		}
	}

	return slogArgs
}
