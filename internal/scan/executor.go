package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/birthdaybot/internal/birthday"
)

// DefaultActionTimeout bounds each external step of an action.
const DefaultActionTimeout = 30 * time.Second

// Action is one side-effecting step of the ritual for a member.
type Action struct {
	Kind        birthday.Transition
	GroupID     int64
	MemberID    int64
	DisplayName string
	Date        birthday.Date
}

// Templates holds the texts sent by the executor. Each is a format string
// taking the member's display name, except InviteDM which takes the invite link.
type Templates struct {
	Eve          string
	Birthday     string
	InviteDM     string
	InviteFailed string
	Restored     string
}

// Executor performs the external calls of an Action. Every step has its own
// error boundary and its own deadline: a failed or timed out step is logged
// and the remaining steps still run.
type Executor struct {
	messenger Messenger
	greeter   Greeter
	templates Templates
	timeout   time.Duration
	logger    *slog.Logger
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithGreeter makes birthday announcements use generated greetings, falling
// back to the Birthday template when generation fails.
func WithGreeter(g Greeter) ExecutorOption {
	return func(e *Executor) {
		e.greeter = g
	}
}

// WithActionTimeout overrides DefaultActionTimeout. The greeter gets the same bound.
func WithActionTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewExecutor creates an Executor that talks to messenger.
func NewExecutor(logger *slog.Logger, messenger Messenger, templates Templates, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Executor{
		messenger: messenger,
		templates: templates,
		timeout:   DefaultActionTimeout,
		logger:    logger.With("component", "action_executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every call of the action and returns the joined errors of the
// calls that failed, or nil.
func (e *Executor) Execute(ctx context.Context, a Action) error {
	run := &actionRun{
		ctx:     ctx,
		timeout: e.timeout,
		log: e.logger.With(
			"action", a.Kind.String(),
			"group_id", a.GroupID,
			"member_id", a.MemberID,
			"display_name", a.DisplayName,
		),
	}

	switch a.Kind {
	case birthday.PreBirthday:
		run.step("remove_member", func(ctx context.Context) error {
			return e.messenger.RemoveMember(ctx, a.GroupID, a.MemberID)
		})
		run.step("announce_eve", func(ctx context.Context) error {
			return e.messenger.SendGroupMessage(ctx, a.GroupID, fmt.Sprintf(e.templates.Eve, a.DisplayName))
		})

	case birthday.OnBirthday:
		text := e.birthdayText(ctx, run.log, a.DisplayName)
		run.step("announce_birthday", func(ctx context.Context) error {
			return e.messenger.SendGroupMessage(ctx, a.GroupID, text)
		})

	case birthday.PostBirthday:
		run.step("restore_member", func(ctx context.Context) error {
			return e.messenger.RestoreMember(ctx, a.GroupID, a.MemberID)
		})
		invited := run.step("send_invite", func(ctx context.Context) error {
			link, err := e.messenger.CreateInviteReference(ctx, a.GroupID)
			if err != nil {
				return fmt.Errorf("create invite link: %w", err)
			}
			return e.messenger.SendPrivateMessage(ctx, a.MemberID, fmt.Sprintf(e.templates.InviteDM, link))
		})
		if !invited {
			run.step("announce_invite_failed", func(ctx context.Context) error {
				return e.messenger.SendGroupMessage(ctx, a.GroupID, fmt.Sprintf(e.templates.InviteFailed, a.DisplayName))
			})
		}
		run.step("announce_restored", func(ctx context.Context) error {
			return e.messenger.SendGroupMessage(ctx, a.GroupID, fmt.Sprintf(e.templates.Restored, a.DisplayName))
		})

	default:
		return fmt.Errorf("unknown action kind %v", a.Kind)
	}

	if len(run.errs) == 0 {
		run.log.InfoContext(ctx, "Birthday action completed")
		return nil
	}
	run.log.WarnContext(ctx, "Birthday action completed with failures", "failed_steps", len(run.errs))
	return errors.Join(run.errs...)
}

func (e *Executor) birthdayText(ctx context.Context, log *slog.Logger, name string) string {
	fallback := fmt.Sprintf(e.templates.Birthday, name)
	if e.greeter == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	greeting, err := e.greeter.BirthdayGreeting(ctx, name)
	if err != nil {
		log.WarnContext(ctx, "Greeting generation failed, using template", "error", err)
		return fallback
	}
	if strings.TrimSpace(greeting) == "" {
		log.WarnContext(ctx, "Greeting generation returned empty text, using template")
		return fallback
	}
	return greeting
}

// actionRun collects the outcome of the calls of one action. Steps derive
// their deadline from ctx, never from a previous step.
type actionRun struct {
	ctx     context.Context
	timeout time.Duration
	log     *slog.Logger
	errs    []error
}

func (r *actionRun) step(name string, fn func(ctx context.Context) error) bool {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		r.log.ErrorContext(r.ctx, "Birthday action step failed", "step", name, "error", err)
		r.errs = append(r.errs, fmt.Errorf("%s: %w", name, err))
		return false
	}
	r.log.DebugContext(r.ctx, "Birthday action step succeeded", "step", name)
	return true
}
