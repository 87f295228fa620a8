// Package server is the HTTP surface of the bot in webhook mode.
package server

import (
	"context"
	"errors"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	echomw "invoice-bot/src/pkg/echo-middleware"
	"invoice-bot/src/pkg/telegram"
	"invoice-bot/src/pkg/util"
)

// UpdateHandler receives every authenticated update. It must not block on the request.
type UpdateHandler func(ctx context.Context, update tgbotapi.Update) (dispatched bool)

/*
Server exposes:
  - POST {webhook_path}: Telegram updates, guarded by the secret token header
  - GET  /healthz: liveness
*/
type Server struct {
	echo       *echo.Echo
	cfg        echomw.Config
	handlerCtx context.Context
	onUpdate   UpdateHandler
}

/*
New builds the server. handlerCtx is handed to onUpdate instead of the request
context, because handlers keep running after the webhook call is answered.
*/
func New(handlerCtx context.Context, cfg echomw.Config, webhookPath string, secret string, onUpdate UpdateHandler) *Server {
	s := &Server{
		echo:       echo.New(),
		cfg:        cfg,
		handlerCtx: handlerCtx,
		onUpdate:   onUpdate,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	limiter := echomw.NewRateLimiter(cfg.MiddlewareRateLimit, cfg.MiddlewareBurst)
	s.echo.Use(echomw.RouteAccessLoggerMiddleware, limiter.Middleware)

	s.echo.GET(echomw.HealthPath, s.health)
	s.echo.POST(webhookPath, s.webhook, echomw.RequireSecretToken(telegram.SecretTokenHeader, secret))
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

/*
webhook answers 200 as soon as the update is parsed. Replies go out through
the Bot API, never in the webhook response.
*/
func (s *Server) webhook(c echo.Context) error {
	update, e := telegram.ParseUpdate(c.Request().Body)
	if e != nil {
		tl.Log(tl.Warning, palette.PurpleBright, "Rejecting webhook body: '%s'", e)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid update"})
	}

	dispatched := s.onUpdate(s.handlerCtx, update)
	tl.Log(tl.Debug, palette.CyanDim, "Webhook update '%d' dispatched=%t", update.UpdateID, dispatched)
	return c.NoContent(http.StatusOK)
}

/*
Run serves until ctx is done, then shuts down gracefully within
shutdown_seconds.
*/
func (s *Server) Run(ctx context.Context) (e *xerr.Error) {
	address := s.cfg.ListenAddress()
	serveErrors := make(chan error, 1)

	go func() {
		tl.Log(tl.Notice, palette.GreenBold, "Bot is %s (%s mode) on '%s'", "ready", telegram.ModeWebhook, address)
		serveErrors <- s.echo.Start(address)
	}()

	select {
	case serveErr := <-serveErrors:
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return xerr.NewError(serveErr, "serve webhook", address)
		}
		return nil
	case <-ctx.Done():
	}

	tl.Log(tl.Notice, palette.Yellow, "Stopping %s: '%s'", "webhook server", ctx.Err())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), util.Seconds(s.cfg.ShutdownSeconds, 1, 300))
	defer cancel()
	shutdownErr := s.echo.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		return xerr.NewError(shutdownErr, "shut down webhook server", address)
	}
	return nil
}
