package email

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

type Provider string

const (
	ProviderSES      Provider = "ses"
	ProviderMailgun  Provider = "mailgun"
	ProviderSendGrid Provider = "sendgrid"
)

// Environment variables read by the providers. SES uses the default AWS credential chain.
const (
	EnvMailgunDomain  = "MAILGUN_DOMAIN"
	EnvMailgunAPIKey  = "MAILGUN_API_KEY"
	EnvSendGridAPIKey = "SENDGRID_API_KEY"
)

// Message is one email with a plain-text and an HTML body.
type Message struct {
	Sender     string
	Recipients []string
	Subject    string
	Text       string
	HTML       string
	Tags       []string // provider-side labels, ignored by SES
}

// sender delivers a message and returns the provider's message id.
type sender interface {
	send(ctx context.Context, message Message) (messageID string, err error)
}

/*
SendMessage delivers one email through provider.

If send is non-nil and false the message is only logged, which is how the
report CLI previews an email. Provider credentials come from the
environment; see RequiredEnvVars.
*/
func SendMessage(
	ctx context.Context, provider Provider, send *bool,
	senderAddress string, recipients []string, subject, text, html string, tags []string,
) (e *xerr.Error) {
	message := Message{
		Sender:     strings.TrimSpace(senderAddress),
		Recipients: cleanRecipients(recipients),
		Subject:    subject,
		Text:       text,
		HTML:       html,
		Tags:       tags,
	}
	e = validate(message)
	if e != nil {
		return e
	}

	if send != nil && !*send {
		tl.Log(
			tl.Notice, palette.Purple, "Email '%s' to '%s' is %s (dry run)",
			message.Subject, strings.Join(message.Recipients, ", "), "not sent",
		)
		tl.Log(tl.Verbose, palette.BlueDim, "Email text:\n```\n%s\n```", message.Text)
		return nil
	}

	client, e := newSender(ctx, provider)
	if e != nil {
		return e
	}
	return deliver(ctx, provider, client, message)
}

func deliver(ctx context.Context, provider Provider, client sender, message Message) (e *xerr.Error) {
	timeout := time.Duration(Cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(DefaultValueConfig().TimeoutSeconds) * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tl.Log(
		tl.Info, palette.Blue, "%s email '%s' to '%v' recipients via '%s'",
		"Sending", message.Subject, len(message.Recipients), provider,
	)
	messageID, err := client.send(sendCtx, message)
	if err != nil {
		return xerr.NewError(err, fmt.Sprintf("unable to send email via %s", provider), message.Recipients)
	}

	tl.Log(tl.Notice1, palette.GreenBold, "Email sent via '%s', message id '%s'", provider, messageID)
	return nil
}

// RequiredEnvVars lists the variables provider needs, for config.CheckIfEnvVarsPresent.
func RequiredEnvVars(provider Provider) []string {
	switch provider {
	case ProviderMailgun:
		return []string{EnvMailgunDomain, EnvMailgunAPIKey}
	case ProviderSendGrid:
		return []string{EnvSendGridAPIKey}
	default:
		return []string{"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"}
	}
}

func newSender(ctx context.Context, provider Provider) (client sender, e *xerr.Error) {
	switch provider {
	case ProviderSES:
		return newSESSender(ctx, Cfg.AwsRegion)
	case ProviderMailgun:
		return newMailgunSender(os.Getenv(EnvMailgunDomain), os.Getenv(EnvMailgunAPIKey), Cfg.MailgunAPIBase)
	case ProviderSendGrid:
		return newSendGridSender(os.Getenv(EnvSendGridAPIKey), Cfg.SendGridHost)
	default:
		return nil, xerr.NewError(fmt.Errorf("unknown provider %q", provider), "unable to pick email provider", provider)
	}
}

func validate(message Message) (e *xerr.Error) {
	switch {
	case message.Sender == "":
		return xerr.NewError(fmt.Errorf("sender is empty"), "invalid email", message.Subject)
	case len(message.Recipients) == 0:
		return xerr.NewError(fmt.Errorf("no recipients"), "invalid email", message.Subject)
	case strings.TrimSpace(message.Text) == "" && strings.TrimSpace(message.HTML) == "":
		return xerr.NewError(fmt.Errorf("both bodies are empty"), "invalid email", message.Subject)
	}
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
