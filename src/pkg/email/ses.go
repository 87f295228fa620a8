package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// SESAPI is the part of *sesv2.Client used to send raw messages.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// base64LineLength is the MIME limit for encoded body lines.
const base64LineLength = 76

func (c *Client) sendWithSES(ctx context.Context, message Message) (e *xerr.Error) {
	if c.ses == nil {
		awsCfg, loadErr := awsconfig.LoadDefaultConfig(ctx)
		if loadErr != nil {
			return xerr.NewError(loadErr, "load AWS config", "awsconfig.LoadDefaultConfig")
		}
		c.ses = sesv2.NewFromConfig(awsCfg)
	}

	raw, e := BuildRawMessage(message, time.Now())
	if e != nil {
		return e
	}

	output, sendErr := c.ses.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(message.Sender),
		Destination:      &types.Destination{ToAddresses: message.Recipients},
		Content:          &types.EmailContent{Raw: &types.RawMessage{Data: raw}},
	})
	if sendErr != nil {
		return xerr.NewError(sendErr, "send email via ses", map[string]any{"sender": message.Sender})
	}
	tl.Log(tl.Debug, palette.CyanDim, "SES accepted message '%s'", aws.ToString(output.MessageId))
	return nil
}

/*
BuildRawMessage renders a Message as a MIME document for SES raw sending.

Layout:

	multipart/mixed
	├── multipart/alternative (text/plain, text/html)
	└── one base64 part per attachment
*/
func BuildRawMessage(message Message, date time.Time) (raw []byte, e *xerr.Error) {
	var buffer bytes.Buffer
	mixed := multipart.NewWriter(&buffer)

	headers := []string{
		"From: " + message.Sender,
		"To: " + strings.Join(message.Recipients, ", "),
		"Subject: " + mime.BEncoding.Encode("UTF-8", message.Subject),
		"Date: " + date.Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q", mixed.Boundary()),
	}
	buffer.WriteString(strings.Join(headers, "\r\n") + "\r\n\r\n")

	var alternativeBody bytes.Buffer
	alternative := multipart.NewWriter(&alternativeBody)
	bodies := []struct{ contentType, content string }{
		{"text/plain", message.Text},
		{"text/html", message.HTML},
	}
	for _, body := range bodies {
		if body.content == "" {
			continue
		}
		part, partErr := alternative.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {body.contentType + "; charset=UTF-8"},
			"Content-Transfer-Encoding": {"base64"},
		})
		if partErr != nil {
			return nil, xerr.NewError(partErr, "create MIME body part", body.contentType)
		}
		part.Write(wrapBase64([]byte(body.content)))
	}
	if closeErr := alternative.Close(); closeErr != nil {
		return nil, xerr.NewError(closeErr, "close MIME alternative part", nil)
	}

	alternativePart, partErr := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", alternative.Boundary())},
	})
	if partErr != nil {
		return nil, xerr.NewError(partErr, "create MIME alternative part", nil)
	}
	alternativePart.Write(alternativeBody.Bytes())

	for _, attachment := range message.Attachments {
		contentType := attachment.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, attachErr := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType(contentType, map[string]string{"name": attachment.Filename})},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": attachment.Filename})},
			"Content-Transfer-Encoding": {"base64"},
		})
		if attachErr != nil {
			return nil, xerr.NewError(attachErr, "create MIME attachment part", attachment.Filename)
		}
		part.Write(wrapBase64(attachment.Data))
	}

	if closeErr := mixed.Close(); closeErr != nil {
		return nil, xerr.NewError(closeErr, "close MIME message", nil)
	}
	return buffer.Bytes(), nil
}

func wrapBase64(data []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(data)
	var wrapped bytes.Buffer
	for len(encoded) > base64LineLength {
		wrapped.WriteString(encoded[:base64LineLength] + "\r\n")
		encoded = encoded[base64LineLength:]
	}
	wrapped.WriteString(encoded + "\r\n")
	return wrapped.Bytes()
}
