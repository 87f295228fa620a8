package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/tuumbleweed/xerr"
)

// SendFunc matches Client.SendMessage.
type SendFunc func(
	ctx context.Context,
	provider Provider,
	sendEmails *bool,
	sender string,
	recipients []string,
	subject string,
	text string,
	html string,
	attachments []Attachment,
) *xerr.Error

/*
Archiver emails every delivered invoice PDF to a fixed list of recipients,
so the shop keeps a copy of what was sent to the chat.
*/
type Archiver struct {
	cfg  Config
	send SendFunc
}

/*
NewArchiver returns nil when archiving is not configured (no provider,
sender or recipients). Check for nil before storing it in an interface.
*/
func NewArchiver(cfg Config, send SendFunc) *Archiver {
	archiver := &Archiver{cfg: cfg, send: send}
	if !archiver.Enabled() {
		return nil
	}
	return archiver
}

func (a *Archiver) Enabled() bool {
	return a != nil && a.cfg.Provider != "" && strings.TrimSpace(a.cfg.Sender) != "" && len(cleanRecipients(a.cfg.Recipients)) > 0
}

// Archive sends one invoice PDF with the summary as the plain text body.
func (a *Archiver) Archive(ctx context.Context, invoiceID int64, filename string, pdf []byte, summary string) (e *xerr.Error) {
	sendEmails := true
	subject := fmt.Sprintf(a.cfg.SubjectFormat, invoiceID)
	text := strings.ReplaceAll(summary, "*", "")
	attachments := []Attachment{{Filename: filename, ContentType: "application/pdf", Data: pdf}}

	return a.send(ctx, a.cfg.Provider, &sendEmails, a.cfg.Sender, a.cfg.Recipients, subject, text, "", attachments)
}
