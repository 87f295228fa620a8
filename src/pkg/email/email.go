// Package email sends messages through SendGrid, Mailgun or Amazon SES.
package email

import (
	"context"
	"fmt"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"invoice-bot/src/pkg/config"
)

type Provider string

const (
	ProviderSendgrid Provider = "sendgrid"
	ProviderMailgun  Provider = "mailgun"
	ProviderSES      Provider = "ses"
)

// Env vars read by the providers.
const (
	EnvSendgridAPIKey = "SENDGRID_API_KEY"
	EnvMailgunDomain  = "MAILGUN_DOMAIN"
	EnvMailgunAPIKey  = "MAILGUN_API_KEY"
	EnvAWSRegion      = "AWS_REGION"
)

// Attachment is one file attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is everything a provider needs to send one email.
type Message struct {
	Sender      string
	Recipients  []string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

type Config struct {
	Provider       Provider `json:"provider,omitempty"` // empty disables archiving
	Sender         string   `json:"sender,omitempty"`
	Recipients     []string `json:"recipients,omitempty"`
	SubjectFormat  string   `json:"subject_format,omitempty"` // gets the invoice id
	SendgridHost   string   `json:"sendgrid_host,omitempty"`
	MailgunAPIBase string   `json:"mailgun_api_base,omitempty"` // empty keeps the library default
}

func DefaultValueConfig() Config {
	return Config{
		SubjectFormat: "فاتورة رقم %d",
		SendgridHost:  "https://api.sendgrid.com",
	}
}

/*
If local Config is provided - use it. Replace all missing values with default ones.

If not provided - just use defaultConfig.
*/
func InitializeConfig(localConfig *Config) (cfg Config) {
	defaultConfig := DefaultValueConfig()
	if localConfig == nil {
		tl.Log(tl.Info, palette.Purple, "%s config is %s, keeping %s", "email", "not provided", "default email config")
		return defaultConfig
	}

	cfg = *localConfig
	tl.ApplyDefaults(&cfg, defaultConfig, func(field string, defVal any) {
		tl.Log(
			tl.Info, palette.Purple,
			"%s field is %s in %s configuration. Using default value: %v",
			field, "missing", config.GetPackageName(), tl.PrettyForStderr(defVal),
		)
	})

	tl.Log(tl.Info, palette.Green, "%s config was %s, using %s", "email", "provided", "local email config")
	tl.LogJSON(tl.Verbose, palette.CyanDim, fmt.Sprintf("%s configuration", config.GetPackageName()), cfg)
	return cfg
}

// RequiredEnvVars lists the secrets a provider needs. SES also reads the AWS default credential chain.
func RequiredEnvVars(provider Provider) []string {
	switch provider {
	case ProviderSendgrid:
		return []string{EnvSendgridAPIKey}
	case ProviderMailgun:
		return []string{EnvMailgunDomain, EnvMailgunAPIKey}
	case ProviderSES:
		return []string{EnvAWSRegion}
	default:
		return nil
	}
}

/*
Client sends messages with the provider picked per call.

Credentials are read from env when a message is sent.
*/
type Client struct {
	cfg Config
	ses SESAPI
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// UseSES replaces the SES API client, which is otherwise built from the AWS default config.
func (c *Client) UseSES(api SESAPI) {
	c.ses = api
}

/*
SendMessage sends one email with the given provider.

When sendEmails is nil or false the message is only logged. recipients must
not be empty.
*/
func (c *Client) SendMessage(
	ctx context.Context,
	provider Provider,
	sendEmails *bool,
	sender string,
	recipients []string,
	subject string,
	text string,
	html string,
	attachments []Attachment,
) (e *xerr.Error) {
	message := Message{
		Sender:      strings.TrimSpace(sender),
		Recipients:  cleanRecipients(recipients),
		Subject:     subject,
		Text:        text,
		HTML:        html,
		Attachments: attachments,
	}
	if message.Sender == "" || len(message.Recipients) == 0 {
		return xerr.NewError(fmt.Errorf("sender or recipients missing"), "validate email", map[string]any{"sender": sender, "recipients": recipients})
	}

	if sendEmails == nil || !*sendEmails {
		tl.Log(tl.Info, palette.Yellow, "Not sending '%s' to %v via %s: sending is %s", subject, message.Recipients, provider, "disabled")
		return nil
	}

	tl.Log(tl.Info, palette.Blue, "Sending '%s' to %v via %s with %d attachments", subject, message.Recipients, provider, len(attachments))
	switch provider {
	case ProviderSendgrid:
		e = c.sendWithSendgrid(ctx, message)
	case ProviderMailgun:
		e = c.sendWithMailgun(ctx, message)
	case ProviderSES:
		e = c.sendWithSES(ctx, message)
	default:
		e = xerr.NewError(fmt.Errorf("provider is '%s'", provider), "unknown email provider", []Provider{ProviderSendgrid, ProviderMailgun, ProviderSES})
	}
	if e != nil {
		return e
	}

	tl.Log(tl.Info1, palette.Green, "Sent '%s' via %s", subject, provider)
	return nil
}

func cleanRecipients(recipients []string) (cleaned []string) {
	for _, recipient := range recipients {
		recipient = strings.TrimSpace(recipient)
		if recipient != "" {
			cleaned = append(cleaned, recipient)
		}
	}
	return cleaned
}
