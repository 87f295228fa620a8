package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"invoice-bot/src/pkg/util"
)

// MessageHandler handles one inbound text message.
type MessageHandler func(ctx context.Context, chatID int64, text string, replier *ChatReplier)

// Poller is the part of *tgbotapi.BotAPI used for long polling.
type Poller interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

/*
Bot dispatches inbound messages to a MessageHandler.

Every accepted message runs in its own goroutine, so requests are
independent and may finish in any order. At most MaxConcurrent run at once.
*/
type Bot struct {
	sender   Sender
	handler  MessageHandler
	cfg      Config
	slots    chan struct{}
	inFlight sync.WaitGroup
}

// Connect authorizes the token with Telegram and returns the API client.
func Connect(token string) (api *tgbotapi.BotAPI, e *xerr.Error) {
	api, connectErr := tgbotapi.NewBotAPI(token)
	if connectErr != nil {
		return nil, xerr.NewError(connectErr, "authorize bot token", "tgbotapi.NewBotAPI")
	}
	tl.Log(tl.Info1, palette.Green, "Authorized on account '%s'", api.Self.UserName)
	return api, nil
}

func NewBot(sender Sender, cfg Config, handler MessageHandler) *Bot {
	return &Bot{
		sender:  sender,
		handler: handler,
		cfg:     cfg,
		slots:   make(chan struct{}, util.Clamp(cfg.MaxConcurrent, 1, 1024)),
	}
}

/*
Dispatch starts the handler for an update and reports whether it did.

Updates without a message, messages without text and bot commands are
skipped. Edited messages and channel posts arrive in other fields and are
never dispatched.
*/
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) (dispatched bool) {
	message := update.Message
	if message == nil || message.Chat == nil || message.Text == "" {
		return false
	}
	if message.IsCommand() {
		tl.Log(tl.Verbose, palette.PurpleDim, "Skipping command '%s' from chat '%d'", message.Command(), message.Chat.ID)
		return false
	}

	chatID := message.Chat.ID
	text := message.Text
	tl.Log(tl.Info, palette.Blue, "Incoming request from chat_id '%d': '%s'", chatID, text)

	b.inFlight.Add(1)
	go func() {
		defer b.inFlight.Done()

		select {
		case b.slots <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-b.slots }()

		b.handler(ctx, chatID, text, NewChatReplier(b.sender, chatID))
	}()
	return true
}

// Wait blocks until every dispatched handler has returned.
func (b *Bot) Wait() {
	b.inFlight.Wait()
}

/*
RunPolling long-polls updates until ctx is done or the updates channel closes,
then waits for in-flight handlers.
*/
func (b *Bot) RunPolling(ctx context.Context, poller Poller) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.cfg.UpdateTimeoutSeconds
	updateConfig.AllowedUpdates = []string{"message"}

	updates := poller.GetUpdatesChan(updateConfig)
	tl.Log(tl.Notice, palette.GreenBold, "Bot is %s (%s mode)", "ready", ModePolling)

	defer b.Wait()
	for {
		select {
		case <-ctx.Done():
			tl.Log(tl.Notice, palette.Yellow, "Stopping %s: '%s'", "polling", ctx.Err())
			poller.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				tl.Log(tl.Warning, palette.Yellow, "Updates channel is %s", "closed")
				return
			}
			b.Dispatch(ctx, update)
		}
	}
}
