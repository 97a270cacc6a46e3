package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultDBPath   = "birthdays.db"

	DefaultRateLimitRetries = 3
	DefaultRateLimitMaxWait = 30 * time.Second

	DefaultTimezone      = "Europe/Moscow"
	DefaultTriggerTime   = "09:00"
	DefaultSQLSchedule   = "0 4 * * 0" // Sundays 04:00
	DefaultActionTimeout = 30 * time.Second
	DefaultMaxParallel   = 4
	DefaultLeapPolicy    = "feb28"

	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiTemperature = 1.0
	DefaultGeminiTimeout     = 20 * time.Second
	DefaultGeminiRetries     = 1
	DefaultGeminiRetryDelay  = 2 * time.Second
	DefaultGeminiInstruction = "You write short, warm and funny birthday wishes for members of a friendly group chat. " +
		"Answer with the wish only, in one or two sentences, and mention the member exactly as given."
)

// DefaultDaysOfWeek runs the scan every day.
var DefaultDaysOfWeek = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// DefaultMessages are the user-visible texts used when the config file omits them.
var DefaultMessages = MessagesConfig{
	Welcome: "👋 I keep track of birthdays in this group. On the eve of a birthday the birthday person " +
		"takes a short break from the chat so everyone can plan the gift, and gets an invite back the day after.",
	Help: "Commands:\n" +
		"/add_birthday dd.mm.yyyy - reply to a member's message to save their birthday\n" +
		"/remove_birthday - reply to a member's message to forget their birthday\n" +
		"/list_birthdays - show all birthdays of this group\n" +
		"/current_time - show the bot's clock",

	GeneralError:       "❌ An error occurred. Please try again later.",
	GroupOnly:          "This command only works in groups.",
	AddUsage:           "Reply to a member's message with: /add_birthday dd.mm.yyyy",
	AddInvalidDate:     "Invalid date format, expected dd.mm.yyyy.",
	AddNotMember:       "This user is not a member of the group.",
	AddMembershipError: "Could not verify that the user is in this group.",
	AddSuccessFmt:      "Added birthday for @%s: %s",
	RemoveUsage:        "Reply to a member's message with: /remove_birthday",
	RemoveSuccessFmt:   "Removed birthday for @%s.",
	RemoveNotFoundFmt:  "No birthday found for @%s.",
	ListHeader:         "Birthdays:\n",
	ListEmpty:          "No birthdays have been added in this group.",
	ListEntryFmt:       "@%s: %s",
	CurrentTimeFmt:     "Bot time: %s (%s)",

	EveFmt:          "Tomorrow is @%s's birthday! 🎉",
	BirthdayFmt:     "Today is @%s's birthday! 🥳",
	InviteDMFmt:     "Your invite back to the group: %s",
	InviteFailedFmt: "Could not send an invite to @%s. Please contact them manually.",
	RestoredFmt:     "@%s has been sent an invite link! 😎",
}

// LoadConfig loads and validates configuration from, in increasing priority:
// 1. Default values
// 2. the YAML file at path (optional)
// 3. BOT_* environment variables (e.g. BOT_TELEGRAM_TOKEN)
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrConfiguration, path, err)
		}
		// Missing file is fine: defaults and environment still apply.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints and the values that need parsing.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return err
	}
	if _, _, err := c.Scheduler.TriggerClock(); err != nil {
		return err
	}
	if _, err := c.Scheduler.Weekdays(); err != nil {
		return err
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("database.path", DefaultDBPath)

	// Registered so BOT_TELEGRAM_TOKEN is picked up by AutomaticEnv.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.rate_limit_retries", DefaultRateLimitRetries)
	v.SetDefault("telegram.rate_limit_max_wait", DefaultRateLimitMaxWait)

	v.SetDefault("scheduler.timezone", DefaultTimezone)
	v.SetDefault("scheduler.trigger_time", DefaultTriggerTime)
	v.SetDefault("scheduler.days_of_week", DefaultDaysOfWeek)
	v.SetDefault("scheduler.run_on_start", false)
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", DefaultSQLSchedule)

	v.SetDefault("scan.action_timeout", DefaultActionTimeout)
	v.SetDefault("scan.max_parallel_groups", DefaultMaxParallel)
	v.SetDefault("scan.dedupe", true)
	v.SetDefault("scan.leap_policy", DefaultLeapPolicy)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.system_instruction", DefaultGeminiInstruction)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)
	v.SetDefault("gemini.max_retries", DefaultGeminiRetries)
	v.SetDefault("gemini.retry_delay", DefaultGeminiRetryDelay)

	m := DefaultMessages
	v.SetDefault("messages.welcome", m.Welcome)
	v.SetDefault("messages.help", m.Help)
	v.SetDefault("messages.general_error", m.GeneralError)
	v.SetDefault("messages.group_only", m.GroupOnly)
	v.SetDefault("messages.add_usage", m.AddUsage)
	v.SetDefault("messages.add_invalid_date", m.AddInvalidDate)
	v.SetDefault("messages.add_not_member", m.AddNotMember)
	v.SetDefault("messages.add_membership_error", m.AddMembershipError)
	v.SetDefault("messages.add_success_fmt", m.AddSuccessFmt)
	v.SetDefault("messages.remove_usage", m.RemoveUsage)
	v.SetDefault("messages.remove_success_fmt", m.RemoveSuccessFmt)
	v.SetDefault("messages.remove_not_found_fmt", m.RemoveNotFoundFmt)
	v.SetDefault("messages.list_header", m.ListHeader)
	v.SetDefault("messages.list_empty", m.ListEmpty)
	v.SetDefault("messages.list_entry_fmt", m.ListEntryFmt)
	v.SetDefault("messages.current_time_fmt", m.CurrentTimeFmt)
	v.SetDefault("messages.eve_fmt", m.EveFmt)
	v.SetDefault("messages.birthday_fmt", m.BirthdayFmt)
	v.SetDefault("messages.invite_dm_fmt", m.InviteDMFmt)
	v.SetDefault("messages.invite_failed_fmt", m.InviteFailedFmt)
	v.SetDefault("messages.restored_fmt", m.RestoredFmt)
}
