package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
	err  error
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

type fakeRequester struct {
	endpoint string
	params   tgbotapi.Params
	response *tgbotapi.APIResponse
	err      error
}

func (f *fakeRequester) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.endpoint = endpoint
	f.params = params
	return f.response, f.err
}

type fakePoller struct {
	updates chan tgbotapi.Update
	config  tgbotapi.UpdateConfig
	stopped bool
}

func (f *fakePoller) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	f.config = config
	return f.updates
}

func (f *fakePoller) StopReceivingUpdates() {
	f.stopped = true
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}}
}

func commandUpdate(chatID int64, text string) tgbotapi.Update {
	update := textUpdate(chatID, text)
	update.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	return update
}

func TestChatReplierSendText(t *testing.T) {
	sender := &recordingSender{}
	replier := NewChatReplier(sender, 42)

	require.Nil(t, replier.SendText(context.Background(), "**bold**", true))
	require.Nil(t, replier.SendText(context.Background(), "plain", false))

	require.Len(t, sender.sent, 2)
	markdown := sender.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), markdown.ChatID)
	assert.Equal(t, "**bold**", markdown.Text)
	assert.Equal(t, tgbotapi.ModeMarkdown, markdown.ParseMode)
	plain := sender.sent[1].(tgbotapi.MessageConfig)
	assert.Equal(t, "", plain.ParseMode)
	assert.Equal(t, int64(42), replier.ChatID())
}

func TestChatReplierSendDocument(t *testing.T) {
	sender := &recordingSender{}
	replier := NewChatReplier(sender, 7)

	require.Nil(t, replier.SendDocument(context.Background(), "invoice_1.pdf", []byte("%PDF"), "caption"))

	require.Len(t, sender.sent, 1)
	document := sender.sent[0].(tgbotapi.DocumentConfig)
	assert.Equal(t, int64(7), document.ChatID)
	assert.Equal(t, "caption", document.Caption)
	file := document.File.(tgbotapi.FileBytes)
	assert.Equal(t, "invoice_1.pdf", file.Name)
	assert.Equal(t, []byte("%PDF"), file.Bytes)
}

func TestChatReplierErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("chat not found")}
	replier := NewChatReplier(sender, 1)

	assert.NotNil(t, replier.SendText(context.Background(), "x", false))
	assert.NotNil(t, replier.SendDocument(context.Background(), "a.pdf", nil, ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotNil(t, NewChatReplier(&recordingSender{}, 1).SendText(ctx, "x", false))
}

func TestDispatchFiltersUpdates(t *testing.T) {
	var mu sync.Mutex
	handled := map[int64]string{}
	bot := NewBot(&recordingSender{}, DefaultValueConfig(), func(ctx context.Context, chatID int64, text string, replier *ChatReplier) {
		mu.Lock()
		defer mu.Unlock()
		handled[chatID] = text
		assert.Equal(t, chatID, replier.ChatID())
	})
	ctx := context.Background()

	assert.False(t, bot.Dispatch(ctx, tgbotapi.Update{}))
	assert.False(t, bot.Dispatch(ctx, textUpdate(1, "")))
	assert.False(t, bot.Dispatch(ctx, commandUpdate(2, "/start")))
	assert.False(t, bot.Dispatch(ctx, tgbotapi.Update{EditedMessage: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 3}, Text: "1001"}}))
	assert.True(t, bot.Dispatch(ctx, textUpdate(4, "1001")))
	assert.True(t, bot.Dispatch(ctx, textUpdate(5, "hello")))
	bot.Wait()

	assert.Equal(t, map[int64]string{4: "1001", 5: "hello"}, handled)
}

func TestDispatchRunsRequestsIndependently(t *testing.T) {
	release := make(chan struct{})
	var finished sync.WaitGroup
	finished.Add(2)
	order := make(chan string, 2)

	bot := NewBot(&recordingSender{}, DefaultValueConfig(), func(ctx context.Context, chatID int64, text string, replier *ChatReplier) {
		defer finished.Done()
		if text == "slow" {
			<-release
		}
		order <- text
	})

	bot.Dispatch(context.Background(), textUpdate(1, "slow"))
	bot.Dispatch(context.Background(), textUpdate(2, "fast"))

	assert.Equal(t, "fast", <-order, "a slow request does not block another chat")
	close(release)
	finished.Wait()
	assert.Equal(t, "slow", <-order)
}

func TestDispatchLimitsConcurrency(t *testing.T) {
	cfg := DefaultValueConfig()
	cfg.MaxConcurrent = 1
	var mu sync.Mutex
	running, peak := 0, 0

	bot := NewBot(&recordingSender{}, cfg, func(ctx context.Context, chatID int64, text string, replier *ChatReplier) {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
	})

	for chatID := int64(1); chatID <= 5; chatID++ {
		bot.Dispatch(context.Background(), textUpdate(chatID, "1"))
	}
	bot.Wait()

	assert.Equal(t, 1, peak)
}

func TestRunPolling(t *testing.T) {
	poller := &fakePoller{updates: make(chan tgbotapi.Update, 3)}
	var mu sync.Mutex
	var texts []string
	cfg := DefaultValueConfig()
	cfg.UpdateTimeoutSeconds = 30
	bot := NewBot(&recordingSender{}, cfg, func(ctx context.Context, chatID int64, text string, replier *ChatReplier) {
		mu.Lock()
		defer mu.Unlock()
		texts = append(texts, text)
	})

	poller.updates <- textUpdate(1, "10")
	poller.updates <- commandUpdate(1, "/help")
	poller.updates <- textUpdate(2, "20")
	close(poller.updates)

	bot.RunPolling(context.Background(), poller)

	assert.ElementsMatch(t, []string{"10", "20"}, texts)
	assert.Equal(t, 30, poller.config.Timeout)
	assert.Equal(t, []string{"message"}, poller.config.AllowedUpdates)
}

func TestRunPollingStopsOnCancel(t *testing.T) {
	poller := &fakePoller{updates: make(chan tgbotapi.Update)}
	bot := NewBot(&recordingSender{}, DefaultValueConfig(), func(ctx context.Context, chatID int64, text string, replier *ChatReplier) {})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		bot.RunPolling(ctx, poller)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunPolling did not stop")
	}
	assert.True(t, poller.stopped)
}

func TestRegisterWebhook(t *testing.T) {
	requester := &fakeRequester{response: &tgbotapi.APIResponse{Ok: true}}

	e := RegisterWebhook(requester, "https://bot.example.com/telegram/webhook", "s3cret")

	require.Nil(t, e)
	assert.Equal(t, "setWebhook", requester.endpoint)
	assert.Equal(t, "https://bot.example.com/telegram/webhook", requester.params["url"])
	assert.Equal(t, "s3cret", requester.params["secret_token"])
	assert.Equal(t, `["message"]`, requester.params["allowed_updates"])
}

func TestWebhookCallFailures(t *testing.T) {
	rejected := &fakeRequester{response: &tgbotapi.APIResponse{Ok: false, Description: "bad webhook"}}
	assert.NotNil(t, RegisterWebhook(rejected, "http://insecure", "s"))

	broken := &fakeRequester{err: errors.New("network down")}
	assert.NotNil(t, DeleteWebhook(broken))

	empty := &fakeRequester{}
	assert.NotNil(t, DeleteWebhook(empty))

	ok := &fakeRequester{response: &tgbotapi.APIResponse{Ok: true}}
	assert.Nil(t, DeleteWebhook(ok))
	assert.Equal(t, "deleteWebhook", ok.endpoint)
}

func TestParseUpdate(t *testing.T) {
	body := `{"update_id": 11, "message": {"message_id": 5, "date": 0, "chat": {"id": 42, "type": "private"}, "text": "1001"}}`

	update, e := ParseUpdate(strings.NewReader(body))

	require.Nil(t, e)
	assert.Equal(t, 11, update.UpdateID)
	require.NotNil(t, update.Message)
	assert.Equal(t, int64(42), update.Message.Chat.ID)
	assert.Equal(t, "1001", update.Message.Text)

	_, e = ParseUpdate(strings.NewReader("{"))
	assert.NotNil(t, e)
}

func TestInitializeConfig(t *testing.T) {
	assert.Equal(t, DefaultValueConfig(), InitializeConfig(nil))

	cfg := InitializeConfig(&Config{Mode: ModeWebhook, WebhookURL: "https://bot.example.com/hook"})
	assert.Equal(t, ModeWebhook, cfg.Mode)
	assert.Equal(t, "/telegram/webhook", cfg.WebhookPath)
	assert.Equal(t, 32, cfg.MaxConcurrent)
}
