package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/birthdaybot/internal/resilience"
	"github.com/edgard/birthdaybot/internal/scan"
)

// inviteTTL is how long a single-use return invite stays valid.
const inviteTTL = 72 * time.Hour

// Messenger implements scan.Messenger on top of the Telegram Bot API.
// Calls rejected with "429 Too Many Requests" are retried after the wait
// Telegram asks for.
type Messenger struct {
	b     *bot.Bot
	log   *slog.Logger
	retry resilience.RetryConfig
}

var _ scan.Messenger = (*Messenger)(nil)

// MessengerOption customizes a Messenger.
type MessengerOption func(*Messenger)

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(log *slog.Logger) MessengerOption {
	return func(m *Messenger) {
		if log != nil {
			m.log = log
		}
	}
}

// WithRetry overrides the rate-limit retry configuration.
func WithRetry(cfg resilience.RetryConfig) MessengerOption {
	return func(m *Messenger) {
		m.retry = cfg
	}
}

// NewMessenger wraps a bot instance.
func NewMessenger(b *bot.Bot, opts ...MessengerOption) *Messenger {
	m := &Messenger{
		b:     b,
		log:   slog.Default(),
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "telegram_messenger")
	return m
}

var rateLimitPolicy = resilience.Policy{
	Retriable: func(err error) bool {
		var tooMany *bot.TooManyRequestsError
		return errors.As(err, &tooMany)
	},
	WaitHint: func(err error) (time.Duration, bool) {
		var tooMany *bot.TooManyRequestsError
		if errors.As(err, &tooMany) && tooMany.RetryAfter > 0 {
			return time.Duration(tooMany.RetryAfter) * time.Second, true
		}
		return 0, false
	},
}

func (m *Messenger) call(ctx context.Context, method string, op func(context.Context) error) error {
	return resilience.Do(ctx, m.log, method, m.retry, rateLimitPolicy, op)
}

func (m *Messenger) sendMessage(ctx context.Context, chatID int64, text string) error {
	return m.call(ctx, "sendMessage", func(ctx context.Context) error {
		_, err := m.b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
		return err
	})
}

func (m *Messenger) SendGroupMessage(ctx context.Context, groupID int64, text string) error {
	if err := m.sendMessage(ctx, groupID, text); err != nil {
		return fmt.Errorf("send message to chat %d: %w", groupID, err)
	}
	return nil
}

// SendPrivateMessage fails unless the member has started a private chat with the bot.
func (m *Messenger) SendPrivateMessage(ctx context.Context, memberID int64, text string) error {
	if err := m.sendMessage(ctx, memberID, text); err != nil {
		return fmt.Errorf("send private message to user %d: %w", memberID, err)
	}
	return nil
}

func (m *Messenger) RemoveMember(ctx context.Context, groupID, memberID int64) error {
	err := m.call(ctx, "banChatMember", func(ctx context.Context) error {
		_, err := m.b.BanChatMember(ctx, &bot.BanChatMemberParams{ChatID: groupID, UserID: memberID})
		return err
	})
	if err != nil {
		return fmt.Errorf("ban user %d in chat %d: %w", memberID, groupID, err)
	}
	return nil
}

func (m *Messenger) RestoreMember(ctx context.Context, groupID, memberID int64) error {
	err := m.call(ctx, "unbanChatMember", func(ctx context.Context) error {
		_, err := m.b.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
			ChatID:       groupID,
			UserID:       memberID,
			OnlyIfBanned: true,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("unban user %d in chat %d: %w", memberID, groupID, err)
	}
	return nil
}

// CreateInviteReference creates a single-use invite link that expires after inviteTTL.
func (m *Messenger) CreateInviteReference(ctx context.Context, groupID int64) (string, error) {
	var link *models.ChatInviteLink
	err := m.call(ctx, "createChatInviteLink", func(ctx context.Context) error {
		var err error
		link, err = m.b.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{
			ChatID:      groupID,
			Name:        "birthday return",
			ExpireDate:  int(time.Now().Add(inviteTTL).Unix()),
			MemberLimit: 1,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create invite link for chat %d: %w", groupID, err)
	}
	if link == nil || link.InviteLink == "" {
		return "", fmt.Errorf("create invite link for chat %d: empty link", groupID)
	}
	return link.InviteLink, nil
}

func (m *Messenger) GetMembershipStatus(ctx context.Context, groupID, memberID int64) (scan.MembershipStatus, error) {
	var member *models.ChatMember
	err := m.call(ctx, "getChatMember", func(ctx context.Context) error {
		var err error
		member, err = m.b.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: groupID, UserID: memberID})
		return err
	})
	if err != nil {
		return scan.StatusUnknown, fmt.Errorf("get member %d of chat %d: %w", memberID, groupID, err)
	}
	return membershipStatus(member), nil
}

func membershipStatus(member *models.ChatMember) scan.MembershipStatus {
	if member == nil {
		return scan.StatusUnknown
	}
	switch member.Type {
	case models.ChatMemberTypeOwner:
		return scan.StatusOwner
	case models.ChatMemberTypeAdministrator:
		return scan.StatusAdministrator
	case models.ChatMemberTypeMember:
		return scan.StatusMember
	case models.ChatMemberTypeRestricted:
		if member.Restricted != nil && !member.Restricted.IsMember {
			return scan.StatusLeft
		}
		return scan.StatusRestricted
	case models.ChatMemberTypeLeft:
		return scan.StatusLeft
	case models.ChatMemberTypeBanned:
		return scan.StatusKicked
	default:
		return scan.StatusUnknown
	}
}
