package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/mailgun/mailgun-go/v4"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/tuumbleweed/xerr"
)

const charsetUTF8 = "UTF-8"

type sesSender struct {
	client *sesv2.Client
}

func newSESSender(ctx context.Context, region string) (client sender, e *xerr.Error) {
	var options []func(*awsconfig.LoadOptions) error
	if region != "" {
		options = append(options, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, xerr.NewError(err, "unable to load AWS config", region)
	}
	return &sesSender{client: sesv2.NewFromConfig(awsCfg)}, nil
}

func (s *sesSender) send(ctx context.Context, message Message) (messageID string, err error) {
	body := &sestypes.Body{}
	if message.Text != "" {
		body.Text = &sestypes.Content{Data: aws.String(message.Text), Charset: aws.String(charsetUTF8)}
	}
	if message.HTML != "" {
		body.Html = &sestypes.Content{Data: aws.String(message.HTML), Charset: aws.String(charsetUTF8)}
	}

	output, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(message.Sender),
		Destination:      &sestypes.Destination{ToAddresses: message.Recipients},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(message.Subject), Charset: aws.String(charsetUTF8)},
				Body:    body,
			},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(output.MessageId), nil
}

type mailgunSender struct {
	client *mailgun.MailgunImpl
}

func newMailgunSender(domain, apiKey, apiBase string) (client sender, e *xerr.Error) {
	if domain == "" || apiKey == "" {
		return nil, xerr.NewError(fmt.Errorf("%s and %s are required", EnvMailgunDomain, EnvMailgunAPIKey), "unable to create mailgun client", domain)
	}
	mg := mailgun.NewMailgun(domain, apiKey)
	if apiBase != "" {
		mg.SetAPIBase(apiBase)
	}
	return &mailgunSender{client: mg}, nil
}

func (m *mailgunSender) send(ctx context.Context, message Message) (messageID string, err error) {
	mailgunMessage := m.client.NewMessage(message.Sender, message.Subject, message.Text, message.Recipients...)
	if message.HTML != "" {
		mailgunMessage.SetHtml(message.HTML)
	}
	for _, tag := range message.Tags {
		err = mailgunMessage.AddTag(tag)
		if err != nil {
			return "", err
		}
	}

	_, messageID, err = m.client.Send(ctx, mailgunMessage)
	return messageID, err
}

type sendGridSender struct {
	apiKey string
	host   string
}

func newSendGridSender(apiKey, host string) (client sender, e *xerr.Error) {
	if apiKey == "" {
		return nil, xerr.NewError(fmt.Errorf("%s is required", EnvSendGridAPIKey), "unable to create sendgrid client", nil)
	}
	return &sendGridSender{apiKey: apiKey, host: host}, nil
}

func (s *sendGridSender) send(ctx context.Context, message Message) (messageID string, err error) {
	request := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(sendGridMail(message))

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return "", err
	}
	return checkSendGridResponse(response)
}

func sendGridMail(message Message) *mail.SGMailV3 {
	personalization := mail.NewPersonalization()
	for _, recipient := range message.Recipients {
		personalization.AddTos(mail.NewEmail("", recipient))
	}

	sgMail := mail.NewV3Mail()
	sgMail.SetFrom(mail.NewEmail("", message.Sender))
	sgMail.Subject = message.Subject
	sgMail.AddPersonalizations(personalization)
	if message.Text != "" {
		sgMail.AddContent(mail.NewContent("text/plain", message.Text))
	}
	if message.HTML != "" {
		sgMail.AddContent(mail.NewContent("text/html", message.HTML))
	}
	if len(message.Tags) > 0 {
		sgMail.AddCategories(message.Tags...)
	}
	return sgMail
}

// checkSendGridResponse turns a non-2xx answer into an error; SendGrid returns 202 on success.
func checkSendGridResponse(response *rest.Response) (messageID string, err error) {
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("sendgrid answered %d: %s", response.StatusCode, response.Body)
	}
	if ids := response.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
