package telegram

import (
	"encoding/json"
	"fmt"
	"io"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// SecretTokenHeader carries the secret_token given to setWebhook on every webhook call.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// Requester is the part of *tgbotapi.BotAPI used to call raw Bot API methods.
type Requester interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

/*
RegisterWebhook points Telegram at webhookURL. Telegram then sends secret in
SecretTokenHeader with every update.

Pending updates are kept so requests sent while the bot was down are answered.
*/
func RegisterWebhook(requester Requester, webhookURL string, secret string) (e *xerr.Error) {
	allowedUpdates, _ := json.Marshal([]string{"message"})
	params := tgbotapi.Params{
		"url":             webhookURL,
		"secret_token":    secret,
		"allowed_updates": string(allowedUpdates),
	}

	e = callBotAPI(requester, "setWebhook", params)
	if e != nil {
		return e
	}
	tl.Log(tl.Info1, palette.Green, "Webhook is %s at '%s'", "registered", webhookURL)
	return nil
}

// DeleteWebhook removes any webhook so long polling can receive updates.
func DeleteWebhook(requester Requester) (e *xerr.Error) {
	e = callBotAPI(requester, "deleteWebhook", tgbotapi.Params{})
	if e != nil {
		return e
	}
	tl.Log(tl.Info, palette.Cyan, "Webhook is %s", "deleted")
	return nil
}

func callBotAPI(requester Requester, endpoint string, params tgbotapi.Params) (e *xerr.Error) {
	response, requestErr := requester.MakeRequest(endpoint, params)
	if requestErr != nil {
		return xerr.NewError(requestErr, fmt.Sprintf("call %s", endpoint), nil)
	}
	if response == nil || !response.Ok {
		description := ""
		if response != nil {
			description = response.Description
		}
		return xerr.NewError(fmt.Errorf("response is not ok"), fmt.Sprintf("call %s", endpoint), description)
	}
	return nil
}

// ParseUpdate decodes one webhook request body.
func ParseUpdate(body io.Reader) (update tgbotapi.Update, e *xerr.Error) {
	decodeErr := json.NewDecoder(body).Decode(&update)
	if decodeErr != nil {
		return update, xerr.NewError(decodeErr, "decode webhook update", nil)
	}
	return update, nil
}
