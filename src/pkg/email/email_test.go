package email

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuumbleweed/xerr"
)

var pdfAttachment = Attachment{Filename: "invoice_1.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 test")}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func enabled() *bool {
	send := true
	return &send
}

func TestSendMessageValidation(t *testing.T) {
	client := NewClient(DefaultValueConfig())
	ctx := context.Background()

	assert.NotNil(t, client.SendMessage(ctx, ProviderSES, enabled(), "", []string{"a@example.com"}, "s", "t", "", nil))
	assert.NotNil(t, client.SendMessage(ctx, ProviderSES, enabled(), "bot@example.com", []string{" ", ""}, "s", "t", "", nil))
	assert.NotNil(t, client.SendMessage(ctx, "pigeon", enabled(), "bot@example.com", []string{"a@example.com"}, "s", "t", "", nil))
}

func TestSendMessageDisabled(t *testing.T) {
	ses := &fakeSES{}
	client := NewClient(DefaultValueConfig())
	client.UseSES(ses)
	disabled := false

	assert.Nil(t, client.SendMessage(context.Background(), ProviderSES, &disabled, "bot@example.com", []string{"a@example.com"}, "s", "t", "", nil))
	assert.Nil(t, client.SendMessage(context.Background(), ProviderSES, nil, "bot@example.com", []string{"a@example.com"}, "s", "t", "", nil))
	assert.Nil(t, ses.input, "nothing is sent")
}

func TestSendMessageViaSendgrid(t *testing.T) {
	var body map[string]any
	var authorization, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		authorization = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()
	t.Setenv(EnvSendgridAPIKey, "sg-key")

	cfg := DefaultValueConfig()
	cfg.SendgridHost = server.URL
	e := NewClient(cfg).SendMessage(context.Background(), ProviderSendgrid, enabled(), "bot@example.com", []string{"a@example.com", "b@example.com"}, "Invoice 1", "text body", "<p>html</p>", []Attachment{pdfAttachment})

	require.Nil(t, e)
	assert.Equal(t, "/v3/mail/send", path)
	assert.Equal(t, "Bearer sg-key", authorization)
	assert.Equal(t, "Invoice 1", body["subject"])

	personalizations := body["personalizations"].([]any)
	require.Len(t, personalizations, 1)
	tos := personalizations[0].(map[string]any)["to"].([]any)
	assert.Len(t, tos, 2)

	attachments := body["attachments"].([]any)
	require.Len(t, attachments, 1)
	attachment := attachments[0].(map[string]any)
	assert.Equal(t, "invoice_1.pdf", attachment["filename"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(pdfAttachment.Data), attachment["content"])
	assert.Len(t, body["content"].([]any), 2)
}

func TestSendgridRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad sender"}]}`))
	}))
	defer server.Close()
	t.Setenv(EnvSendgridAPIKey, "sg-key")

	cfg := DefaultValueConfig()
	cfg.SendgridHost = server.URL
	e := NewClient(cfg).SendMessage(context.Background(), ProviderSendgrid, enabled(), "bot@example.com", []string{"a@example.com"}, "s", "t", "", nil)

	assert.NotNil(t, e)
}

func TestSendMessageViaMailgun(t *testing.T) {
	var path, from, subject string
	var attachmentNames []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		from = r.FormValue("from")
		subject = r.FormValue("subject")
		if r.MultipartForm != nil {
			for _, header := range r.MultipartForm.File["attachment"] {
				attachmentNames = append(attachmentNames, header.Filename)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "<1@mg.example.com>", "message": "Queued. Thank you."}`))
	}))
	defer server.Close()
	t.Setenv(EnvMailgunDomain, "mg.example.com")
	t.Setenv(EnvMailgunAPIKey, "mg-key")

	cfg := DefaultValueConfig()
	cfg.MailgunAPIBase = server.URL + "/v3"
	e := NewClient(cfg).SendMessage(context.Background(), ProviderMailgun, enabled(), "bot@example.com", []string{"a@example.com"}, "Invoice 1", "text", "", []Attachment{pdfAttachment})

	require.Nil(t, e)
	assert.True(t, strings.HasSuffix(path, "/mg.example.com/messages"), path)
	assert.Equal(t, "bot@example.com", from)
	assert.Equal(t, "Invoice 1", subject)
	assert.Equal(t, []string{"invoice_1.pdf"}, attachmentNames)
}

func TestSendMessageViaSES(t *testing.T) {
	ses := &fakeSES{}
	client := NewClient(DefaultValueConfig())
	client.UseSES(ses)

	e := client.SendMessage(context.Background(), ProviderSES, enabled(), "bot@example.com", []string{"a@example.com"}, "Invoice 1", "text", "", []Attachment{pdfAttachment})

	require.Nil(t, e)
	require.NotNil(t, ses.input)
	assert.Equal(t, "bot@example.com", aws.ToString(ses.input.FromEmailAddress))
	assert.Equal(t, []string{"a@example.com"}, ses.input.Destination.ToAddresses)
	assert.Contains(t, string(ses.input.Content.Raw.Data), "invoice_1.pdf")

	failing := NewClient(DefaultValueConfig())
	failing.UseSES(&fakeSES{err: errors.New("throttled")})
	assert.NotNil(t, failing.SendMessage(context.Background(), ProviderSES, enabled(), "bot@example.com", []string{"a@example.com"}, "s", "t", "", nil))
}

func TestBuildRawMessage(t *testing.T) {
	message := Message{
		Sender:      "bot@example.com",
		Recipients:  []string{"a@example.com", "b@example.com"},
		Subject:     "فاتورة رقم 1",
		Text:        "plain text",
		HTML:        "<p>html</p>",
		Attachments: []Attachment{pdfAttachment},
	}

	raw, e := BuildRawMessage(message, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	require.Nil(t, e)

	parsed, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "bot@example.com", parsed.Header.Get("From"))
	assert.Equal(t, "a@example.com, b@example.com", parsed.Header.Get("To"))
	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "فاتورة رقم 1", subject)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(parsed.Body, params["boundary"])
	alternative, err := reader.NextPart()
	require.NoError(t, err)
	alternativeType, alternativeParams, err := mime.ParseMediaType(alternative.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", alternativeType)

	bodies := multipart.NewReader(alternative, alternativeParams["boundary"])
	textPart, err := bodies.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=UTF-8", textPart.Header.Get("Content-Type"))
	encodedText, err := io.ReadAll(textPart)
	require.NoError(t, err)
	decodedText, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(encodedText)))
	require.NoError(t, err)
	assert.Equal(t, "plain text", string(decodedText))

	htmlPart, err := bodies.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=UTF-8", htmlPart.Header.Get("Content-Type"))

	attachment, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "invoice_1.pdf", attachment.FileName())
	encoded, err := io.ReadAll(attachment)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(strings.TrimSpace(string(encoded)), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, pdfAttachment.Data, decoded)

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWrapBase64(t *testing.T) {
	wrapped := string(wrapBase64(make([]byte, 200)))

	for _, line := range strings.Split(strings.TrimSuffix(wrapped, "\r\n"), "\r\n") {
		assert.LessOrEqual(t, len(line), base64LineLength)
	}
}

func TestArchiver(t *testing.T) {
	assert.Nil(t, NewArchiver(DefaultValueConfig(), nil))

	cfg := DefaultValueConfig()
	cfg.Provider = ProviderSES
	cfg.Sender = "bot@example.com"
	assert.Nil(t, NewArchiver(cfg, nil), "no recipients")

	cfg.Recipients = []string{"archive@example.com"}
	var gotProvider Provider
	var gotSubject, gotText string
	var gotAttachments []Attachment
	var gotSend bool
	archiver := NewArchiver(cfg, func(ctx context.Context, provider Provider, sendEmails *bool, sender string, recipients []string, subject string, text string, html string, attachments []Attachment) *xerr.Error {
		gotProvider, gotSubject, gotText, gotAttachments, gotSend = provider, subject, text, attachments, *sendEmails
		return nil
	})
	require.NotNil(t, archiver)
	assert.True(t, archiver.Enabled())

	e := archiver.Archive(context.Background(), 1001, "invoice_1001.pdf", []byte("%PDF"), "▪️ *العميل:* Ali")

	require.Nil(t, e)
	assert.Equal(t, ProviderSES, gotProvider)
	assert.Equal(t, "فاتورة رقم 1001", gotSubject)
	assert.Equal(t, "▪️ العميل: Ali", gotText)
	assert.True(t, gotSend)
	require.Len(t, gotAttachments, 1)
	assert.Equal(t, "application/pdf", gotAttachments[0].ContentType)
	assert.Equal(t, "invoice_1001.pdf", gotAttachments[0].Filename)
}

func TestRequiredEnvVars(t *testing.T) {
	assert.Equal(t, []string{"SENDGRID_API_KEY"}, RequiredEnvVars(ProviderSendgrid))
	assert.Equal(t, []string{"MAILGUN_DOMAIN", "MAILGUN_API_KEY"}, RequiredEnvVars(ProviderMailgun))
	assert.Equal(t, []string{"AWS_REGION"}, RequiredEnvVars(ProviderSES))
	assert.Empty(t, RequiredEnvVars(""))
}
