package email

import (
	"context"
	"os"

	"github.com/mailgun/mailgun-go/v4"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

func (c *Client) sendWithMailgun(ctx context.Context, message Message) (e *xerr.Error) {
	domain := os.Getenv(EnvMailgunDomain)
	mg := mailgun.NewMailgun(domain, os.Getenv(EnvMailgunAPIKey))
	if c.cfg.MailgunAPIBase != "" {
		mg.SetAPIBase(c.cfg.MailgunAPIBase)
	}

	mgMessage := mg.NewMessage(message.Sender, message.Subject, message.Text, message.Recipients...)
	if message.HTML != "" {
		mgMessage.SetHtml(message.HTML)
	}
	for _, attachment := range message.Attachments {
		mgMessage.AddBufferAttachment(attachment.Filename, attachment.Data)
	}

	response, id, sendErr := mg.Send(ctx, mgMessage)
	if sendErr != nil {
		return xerr.NewError(sendErr, "send email via mailgun", map[string]any{"domain": domain})
	}
	tl.Log(tl.Debug, palette.CyanDim, "Mailgun accepted message '%s': '%s'", id, response)
	return nil
}
