// Package telegram receives invoice requests from Telegram and sends the replies back.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// Sender is the part of *tgbotapi.BotAPI used to reply.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ChatReplier sends replies to the chat a request came from.
type ChatReplier struct {
	sender Sender
	chatID int64
}

func NewChatReplier(sender Sender, chatID int64) *ChatReplier {
	return &ChatReplier{sender: sender, chatID: chatID}
}

func (r *ChatReplier) ChatID() int64 {
	return r.chatID
}

// SendText sends one message, with Markdown parse mode when markdown is set.
func (r *ChatReplier) SendText(ctx context.Context, text string, markdown bool) (e *xerr.Error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return xerr.NewError(ctxErr, "send text message", r.chatID)
	}

	message := tgbotapi.NewMessage(r.chatID, text)
	if markdown {
		message.ParseMode = tgbotapi.ModeMarkdown
	}

	_, sendErr := r.sender.Send(message)
	if sendErr != nil {
		return xerr.NewError(sendErr, "send text message", map[string]any{"chat_id": r.chatID, "markdown": markdown})
	}
	tl.Log(tl.Debug, palette.CyanDim, "Sent %d characters to chat '%d'", len([]rune(text)), r.chatID)
	return nil
}

// SendDocument uploads data as a file attachment named filename.
func (r *ChatReplier) SendDocument(ctx context.Context, filename string, data []byte, caption string) (e *xerr.Error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return xerr.NewError(ctxErr, "send document", r.chatID)
	}

	document := tgbotapi.NewDocument(r.chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	document.Caption = caption

	_, sendErr := r.sender.Send(document)
	if sendErr != nil {
		return xerr.NewError(sendErr, "send document", map[string]any{"chat_id": r.chatID, "filename": filename})
	}
	tl.Log(tl.Debug, palette.CyanDim, "Sent document '%s' (%s) to chat '%d'", filename, fmt.Sprintf("%d bytes", len(data)), r.chatID)
	return nil
}
