package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"invoice-bot/src/pkg/config"
	echomw "invoice-bot/src/pkg/echo-middleware"
	"invoice-bot/src/pkg/email"
	"invoice-bot/src/pkg/invoice"
	"invoice-bot/src/pkg/pipeline"
	"invoice-bot/src/pkg/render"
	"invoice-bot/src/pkg/server"
	"invoice-bot/src/pkg/store"
	"invoice-bot/src/pkg/telegram"
)

// closer is implemented by stores holding a connection pool.
type closer interface {
	Close() *xerr.Error
}

/*
main runs the invoice bot until SIGINT or SIGTERM.

Example:

	go run ./src/cmd/invoice-bot -config ./cfg/config.json
*/
func main() {
	configPath := flag.String("config", "./cfg/config.json", "Path to the JSON config file")
	envPath := flag.String("env", ".env", "Path to the .env file with secrets")
	flag.Parse()

	config.LoadDotEnv(*envPath)
	config.InitializeConfig(*configPath).QuitIf(xerr.ErrorTypeError)

	invoiceCfg := invoice.InitializeConfig(section[invoice.Config]("invoice"))
	storeCfg := store.InitializeConfig(section[store.Config]("store"))
	renderCfg := render.InitializeConfig(section[render.Config]("render"))
	telegramCfg := telegram.InitializeConfig(section[telegram.Config]("telegram"))
	echoCfg := echomw.InitializeConfig(section[echomw.Config]("echo-middleware"))
	emailCfg := email.InitializeConfig(section[email.Config]("email"))

	archiver := email.NewArchiver(emailCfg, email.NewClient(emailCfg).SendMessage)

	requiredEnvVars := []string{config.EnvBotToken}
	requiredEnvVars = append(requiredEnvVars, store.RequiredEnvVars(storeCfg.Backend)...)
	if archiver != nil {
		requiredEnvVars = append(requiredEnvVars, email.RequiredEnvVars(emailCfg.Provider)...)
	}
	if telegramCfg.Mode == telegram.ModeWebhook {
		requiredEnvVars = append(requiredEnvVars, config.EnvWebhookSecret)
	}
	config.CheckIfEnvVarsPresent(requiredEnvVars...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retriever, e := store.New(ctx, storeCfg)
	e.QuitIf(xerr.ErrorTypeError)
	if pool, ok := retriever.(closer); ok {
		defer pool.Close()
	}

	renderer, e := render.New(renderCfg)
	e.QuitIf(xerr.ErrorTypeError)
	tl.Log(tl.Info1, palette.Green, "Render engines: %v", renderer.Names())

	service := pipeline.New(retriever, renderer, invoiceCfg)
	if archiver != nil {
		service.ArchiveTo(archiver)
		tl.Log(tl.Info1, palette.Green, "Archiving invoices to %v via %s", emailCfg.Recipients, emailCfg.Provider)
	}

	api, e := telegram.Connect(os.Getenv(config.EnvBotToken))
	e.QuitIf(xerr.ErrorTypeError)

	bot := telegram.NewBot(api, telegramCfg, func(ctx context.Context, chatID int64, text string, replier *telegram.ChatReplier) {
		service.Handle(ctx, pipeline.Request{ChatID: chatID, Text: text}, replier)
	})

	tl.Log(tl.Notice, palette.BlueBold, "Starting invoice bot in %s mode with config sections %s", telegramCfg.Mode, config.Describe())
	switch telegramCfg.Mode {
	case telegram.ModePolling:
		if e = telegram.DeleteWebhook(api); e != nil {
			tl.Log(tl.Warning, palette.Yellow, "Unable to delete webhook before polling: '%s'", e)
		}
		bot.RunPolling(ctx, api)

	case telegram.ModeWebhook:
		if telegramCfg.WebhookURL == "" {
			xerr.QuitIfError(fmt.Errorf("telegram.webhook_url is empty"), "webhook mode needs a public URL")
		}
		secret := os.Getenv(config.EnvWebhookSecret)
		telegram.RegisterWebhook(api, telegramCfg.WebhookURL, secret).QuitIf(xerr.ErrorTypeError)

		e = server.New(ctx, echoCfg, telegramCfg.WebhookPath, secret, bot.Dispatch).Run(ctx)
		bot.Wait()
		e.QuitIf(xerr.ErrorTypeError)

	default:
		xerr.QuitIfError(fmt.Errorf("mode is '%s'", telegramCfg.Mode), "unknown telegram mode")
	}

	tl.Log(tl.Notice, palette.Green, "Invoice bot %s", "stopped")
}

// section reads one config file section, exiting when it has the wrong shape.
func section[T any](name string) *T {
	local, e := config.Section[T](name)
	e.QuitIf(xerr.ErrorTypeError)
	return local
}
