package email

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/tuumbleweed/xerr"
)

const sendgridEndpoint = "/v3/mail/send"

// buildSendgridMail turns a Message into a SendGrid v3 mail with one personalization for all recipients.
func buildSendgridMail(message Message) *mail.SGMailV3 {
	sgMail := mail.NewV3Mail()
	sgMail.SetFrom(mail.NewEmail("", message.Sender))
	sgMail.Subject = message.Subject

	personalization := mail.NewPersonalization()
	for _, recipient := range message.Recipients {
		personalization.AddTos(mail.NewEmail("", recipient))
	}
	sgMail.AddPersonalizations(personalization)

	if message.Text != "" {
		sgMail.AddContent(mail.NewContent("text/plain", message.Text))
	}
	if message.HTML != "" {
		sgMail.AddContent(mail.NewContent("text/html", message.HTML))
	}

	for _, attachment := range message.Attachments {
		sgAttachment := mail.NewAttachment()
		sgAttachment.SetContent(base64.StdEncoding.EncodeToString(attachment.Data))
		sgAttachment.SetType(attachment.ContentType)
		sgAttachment.SetFilename(attachment.Filename)
		sgAttachment.SetDisposition("attachment")
		sgMail.AddAttachment(sgAttachment)
	}
	return sgMail
}

func (c *Client) sendWithSendgrid(ctx context.Context, message Message) (e *xerr.Error) {
	request := sendgrid.GetRequest(os.Getenv(EnvSendgridAPIKey), sendgridEndpoint, c.cfg.SendgridHost)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(buildSendgridMail(message))

	response, sendErr :=sendgrid.MakeRequestWithContext(ctx, request)
	if sendErr != nil {
		return xerr.NewError(sendErr, "send email via sendgrid", c.cfg.SendgridHost)
	}
	if response.StatusCode >= 300 {
		return xerr.NewError(fmt.Errorf("status is '%d'", response.StatusCode), "sendgrid rejected email", response.Body)
	}
	return nil
}
