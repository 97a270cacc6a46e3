// Package config provides configuration loading, validation, and management
// for the birthday bot. It reads a YAML file, applies BOT_* environment
// overrides and default values, and validates the result.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
)

// ErrConfiguration wraps every configuration loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration for all components.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Scan      ScanConfig      `mapstructure:"scan"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig selects log verbosity and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig holds the bot credentials and rate-limit handling. BotInfo is
// filled at startup.
type TelegramConfig struct {
	Token            string        `mapstructure:"token"              validate:"required"`
	RateLimitRetries uint          `mapstructure:"rate_limit_retries" validate:"min=1,max=10"`
	RateLimitMaxWait time.Duration `mapstructure:"rate_limit_max_wait" validate:"gte=0"`
	BotInfo          *models.User  `mapstructure:"-"                  validate:"-"`
}

// SchedulerConfig controls when the daily birthday scan and maintenance tasks run.
type SchedulerConfig struct {
	Timezone    string                `mapstructure:"timezone"     validate:"required,timezone"`
	TriggerTime string                `mapstructure:"trigger_time" validate:"required,datetime=15:04"`
	DaysOfWeek  []string              `mapstructure:"days_of_week" validate:"required,min=1,dive,oneof=sun mon tue wed thu fri sat"`
	RunOnStart  bool                  `mapstructure:"run_on_start"`
	Tasks       map[string]TaskConfig `mapstructure:"tasks"        validate:"dive"`
}

// TaskConfig configures a cron-scheduled auxiliary task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// ScanConfig tunes the daily scan engine and its action executor.
type ScanConfig struct {
	ActionTimeout     time.Duration `mapstructure:"action_timeout"      validate:"min=1s,max=10m"`
	MaxParallelGroups int           `mapstructure:"max_parallel_groups" validate:"min=1,max=64"`
	Dedupe            bool          `mapstructure:"dedupe"`
	LeapPolicy        string        `mapstructure:"leap_policy"         validate:"oneof=feb28 mar1"`
}

// GeminiConfig configures generated birthday greetings. Greetings are
// disabled when APIKey is empty.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"              validate:"required_with=APIKey"`
	Temperature       float32       `mapstructure:"temperature"        validate:"min=0,max=2"`
	SystemInstruction string        `mapstructure:"system_instruction"`
	Timeout           time.Duration `mapstructure:"timeout"            validate:"min=1s,max=5m"`
	MaxRetries        int           `mapstructure:"max_retries"        validate:"min=0,max=5"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
}

// Enabled reports whether greetings should be generated.
func (g GeminiConfig) Enabled() bool {
	return g.APIKey != ""
}

// MessagesConfig holds every user-visible text. Fields ending in Fmt are
// fmt format strings.
type MessagesConfig struct {
	Welcome string `mapstructure:"welcome" validate:"required"`
	Help    string `mapstructure:"help"    validate:"required"`

	GeneralError       string `mapstructure:"general_error"        validate:"required"`
	GroupOnly          string `mapstructure:"group_only"           validate:"required"`
	AddUsage           string `mapstructure:"add_usage"            validate:"required"`
	AddInvalidDate     string `mapstructure:"add_invalid_date"     validate:"required"`
	AddNotMember       string `mapstructure:"add_not_member"       validate:"required"`
	AddMembershipError string `mapstructure:"add_membership_error" validate:"required"`
	AddSuccessFmt      string `mapstructure:"add_success_fmt"      validate:"required"`
	RemoveUsage        string `mapstructure:"remove_usage"         validate:"required"`
	RemoveSuccessFmt   string `mapstructure:"remove_success_fmt"   validate:"required"`
	RemoveNotFoundFmt  string `mapstructure:"remove_not_found_fmt" validate:"required"`
	ListHeader         string `mapstructure:"list_header"          validate:"required"`
	ListEmpty          string `mapstructure:"list_empty"           validate:"required"`
	ListEntryFmt       string `mapstructure:"list_entry_fmt"       validate:"required"`
	CurrentTimeFmt     string `mapstructure:"current_time_fmt"     validate:"required"`

	EveFmt          string `mapstructure:"eve_fmt"           validate:"required"`
	BirthdayFmt     string `mapstructure:"birthday_fmt"      validate:"required"`
	InviteDMFmt     string `mapstructure:"invite_dm_fmt"     validate:"required"`
	InviteFailedFmt string `mapstructure:"invite_failed_fmt" validate:"required"`
	RestoredFmt     string `mapstructure:"restored_fmt"      validate:"required"`
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Location loads the configured timezone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timezone %q: %v", ErrConfiguration, s.Timezone, err)
	}
	return loc, nil
}

// TriggerClock returns the hour and minute of TriggerTime.
func (s SchedulerConfig) TriggerClock() (hour, minute uint, err error) {
	h, m, ok := strings.Cut(s.TriggerTime, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: trigger_time %q must be HH:MM", ErrConfiguration, s.TriggerTime)
	}
	hh, errH := strconv.ParseUint(h, 10, 8)
	mm, errM := strconv.ParseUint(m, 10, 8)
	if errH != nil || errM != nil || hh > 23 || mm > 59 {
		return 0, 0, fmt.Errorf("%w: trigger_time %q must be HH:MM", ErrConfiguration, s.TriggerTime)
	}
	return uint(hh), uint(mm), nil
}

// Weekdays returns DaysOfWeek as time.Weekday values, without duplicates.
func (s SchedulerConfig) Weekdays() ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool, len(s.DaysOfWeek))
	out := make([]time.Weekday, 0, len(s.DaysOfWeek))
	for _, name := range s.DaysOfWeek {
		day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrConfiguration, name)
		}
		if !seen[day] {
			seen[day] = true
			out = append(out, day)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: days_of_week is empty", ErrConfiguration)
	}
	return out, nil
}
