package notify

import (
	"fmt"
	"time"

	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
)

// Config selects and configures the delivery channels. Providers lists
// the enabled channels in delivery order; each named provider must have
// its section filled in.
type Config struct {
	Providers      []string      `mapstructure:"providers" validate:"required,min=1"`
	SuspendTimeout time.Duration `mapstructure:"suspend_timeout"`

	Console  ConsoleConfig  `mapstructure:"console"`
	Pushover PushoverConfig `mapstructure:"pushover"`
	Slack    SlackConfig    `mapstructure:"slack"`
	Ntfy     NtfyConfig     `mapstructure:"ntfy"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
}

type ConsoleConfig struct {
	MessageTemplate string `mapstructure:"message_template"`
}

type PushoverConfig struct {
	MessageTemplate string `mapstructure:"message_template"`
	UserKey         string `mapstructure:"user_key"`
	APIToken        string `mapstructure:"api_token"`
}

type SlackConfig struct {
	MessageTemplate string `mapstructure:"message_template"`
	WebhookURL      string `mapstructure:"webhook_url"`
	Channel         string `mapstructure:"channel"`
}

type NtfyConfig struct {
	MessageTemplate string `mapstructure:"message_template"`
	Topic           string `mapstructure:"topic"`
	Title           string `mapstructure:"title"`
}

type TelegramConfig struct {
	MessageTemplate string `mapstructure:"message_template"`
	BotToken        string `mapstructure:"bot_token"`
	ChatID          int64  `mapstructure:"chat_id"`
}

type EmailConfig struct {
	MessageTemplate string `mapstructure:"message_template"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	From            string `mapstructure:"from"`
	To              string `mapstructure:"to"`
	Subject         string `mapstructure:"subject"`
}

// DefaultTemplate is used when a provider section omits its own.
const DefaultTemplate = "New slot for {name}: {date_time} at {clinic_name} - {doctor_name}"

// BuildSinks constructs the configured sinks in order. There is no
// global registry: the factory is the single place a provider name maps
// to a concrete sink.
func BuildSinks(cfg Config) ([]Sink, error) {
	sinks := make([]Sink, 0, len(cfg.Providers))
	for _, provider := range cfg.Providers {
		sink, err := buildSink(cfg, provider)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

func buildSink(cfg Config, provider string) (Sink, error) {
	switch provider {
	case "console":
		return NewConsoleSink(templateOr(cfg.Console.MessageTemplate), nil), nil

	case "pushover":
		if cfg.Pushover.UserKey == "" || cfg.Pushover.APIToken == "" {
			return nil, apperrors.NewConfig("pushover requires user_key and api_token", nil)
		}
		return NewPushoverSink(templateOr(cfg.Pushover.MessageTemplate),
			cfg.Pushover.UserKey, cfg.Pushover.APIToken), nil

	case "slack":
		if cfg.Slack.WebhookURL == "" {
			return nil, apperrors.NewConfig("slack requires webhook_url", nil)
		}
		return NewSlackSink(templateOr(cfg.Slack.MessageTemplate),
			cfg.Slack.WebhookURL, cfg.Slack.Channel), nil

	case "ntfy":
		if cfg.Ntfy.Topic == "" {
			return nil, apperrors.NewConfig("ntfy requires a topic", nil)
		}
		return NewNtfySink(templateOr(cfg.Ntfy.MessageTemplate),
			cfg.Ntfy.Topic, cfg.Ntfy.Title), nil

	case "telegram":
		if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
			return nil, apperrors.NewConfig("telegram requires bot_token and chat_id", nil)
		}
		sink, err := NewTelegramSink(templateOr(cfg.Telegram.MessageTemplate),
			cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return nil, apperrors.NewConfig("telegram sink setup failed", err)
		}
		return sink, nil

	case "email":
		if cfg.Email.Host == "" || cfg.Email.To == "" {
			return nil, apperrors.NewConfig("email requires host and to", nil)
		}
		return NewEmailSink(templateOr(cfg.Email.MessageTemplate),
			cfg.Email.Host, cfg.Email.Port, cfg.Email.Username, cfg.Email.Password,
			cfg.Email.From, cfg.Email.To, cfg.Email.Subject), nil

	default:
		return nil, apperrors.NewConfig(fmt.Sprintf("unknown notification provider %q", provider), nil)
	}
}

func templateOr(template string) string {
	if template == "" {
		return DefaultTemplate
	}
	return template
}
