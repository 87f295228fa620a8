// Package pipeline answers one invoice request: fetch, summarize, render and deliver.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
	"golang.org/x/sync/errgroup"

	"invoice-bot/src/pkg/invoice"
	"invoice-bot/src/pkg/render"
	"invoice-bot/src/pkg/store"
)

// Outcome is how a request ended.
type Outcome string

const (
	Ignored       Outcome = "ignored"
	InvalidInput  Outcome = "invalid_input"
	NotFound      Outcome = "not_found"
	TemplateError Outcome = "template_error"
	Failed        Outcome = "failed"
	Delivered     Outcome = "delivered"
)

// Replier sends replies back to whoever made the request.
type Replier interface {
	SendText(ctx context.Context, text string, markdown bool) *xerr.Error
	SendDocument(ctx context.Context, filename string, data []byte, caption string) *xerr.Error
}

// Archiver keeps a copy of every delivered document.
type Archiver interface {
	Archive(ctx context.Context, invoiceID int64, filename string, pdf []byte, summary string) *xerr.Error
}

// Request is one inbound message.
type Request struct {
	ChatID int64
	Text   string
}

var (
	errHeaderFetch = errors.New("header fetch failed")
	errItemsFetch  = errors.New("items fetch failed")
)

/*
Service holds the collaborators of the pipeline. It keeps no per-request
state, so one Service serves any number of concurrent requests.
*/
type Service struct {
	retriever store.Retriever
	renderer  render.Renderer
	archiver  Archiver
	cfg       invoice.Config
}

func New(retriever store.Retriever, renderer render.Renderer, cfg invoice.Config) *Service {
	return &Service{retriever: retriever, renderer: renderer, cfg: cfg}
}

// ArchiveTo makes the service send every delivered PDF to archiver. Pass a non-nil value.
func (s *Service) ArchiveTo(archiver Archiver) {
	s.archiver = archiver
}

/*
Handle runs one request to completion and reports how it ended.

Messages that are not digits-only are ignored without a reply. Every other
ending sends the requester at least one message. Replies that already went
out are never retracted when a later step fails.
*/
func (s *Service) Handle(ctx context.Context, request Request, replier Replier) (outcome Outcome) {
	text := strings.TrimSpace(request.Text)
	if !IsDigits(text) {
		tl.Log(tl.Verbose, palette.PurpleDim, "Ignoring non-numeric message from chat '%d'", request.ChatID)
		return Ignored
	}

	requestID := uuid.NewString()
	invoiceID, parseErr := ParseInvoiceID(text)
	if parseErr != nil {
		tl.Log(tl.Info, palette.Yellow, "[%s] Rejected request from chat '%d': '%s'", requestID, request.ChatID, parseErr)
		s.reply(ctx, replier, requestID, MessageInvalidNumber)
		return InvalidInput
	}

	tl.Log(tl.Info, palette.Blue, "[%s] Looking up invoice %d for chat '%d'", requestID, invoiceID, request.ChatID)
	e := replier.SendText(ctx, fmt.Sprintf(MessageSearching, invoiceID), false)
	if e != nil {
		tl.Log(tl.Error, palette.Red, "[%s] Unable to acknowledge invoice %d: '%s'", requestID, invoiceID, e)
		return Failed
	}

	outcome, e = s.deliver(ctx, requestID, invoiceID, replier)
	if e != nil {
		tl.Log(tl.Error, palette.Red, "[%s] Failed to process invoice %d: '%s'", requestID, invoiceID, e)
		s.reply(ctx, replier, requestID, MessageTechnicalError)
		return Failed
	}

	tl.Log(tl.Info1, palette.Green, "[%s] Invoice %d is %s", requestID, invoiceID, outcome)
	return outcome
}

func (s *Service) deliver(ctx context.Context, requestID string, invoiceID int64, replier Replier) (outcome Outcome, e *xerr.Error) {
	inv, found, e := s.fetch(ctx, invoiceID)
	if e != nil {
		return Failed, e
	}
	if !found {
		tl.Log(tl.Info, palette.Yellow, "[%s] Invoice %d is %s", requestID, invoiceID, "not found")
		s.reply(ctx, replier, requestID, fmt.Sprintf(MessageNotFound, invoiceID))
		return NotFound, nil
	}
	tl.LogJSON(tl.Verbose, palette.CyanDim, fmt.Sprintf("[%s] invoice %d", requestID, invoiceID), inv)

	summary := invoice.Summary(inv, s.cfg)
	if e = replier.SendText(ctx, summary, true); e != nil {
		return Failed, e
	}
	if e = replier.SendText(ctx, MessagePreparingPDF, false); e != nil {
		return Failed, e
	}

	template, e := invoice.LoadTemplate(filepath.Join(s.cfg.ResourceRoot, s.cfg.TemplateFile))
	if e != nil {
		return Failed, e
	}
	document, buildErr := invoice.BuildDocument(template, inv, s.cfg)
	if errors.Is(buildErr, invoice.ErrTemplateStructure) {
		tl.Log(tl.Error, palette.Red, "[%s] Template '%s' is misconfigured: '%s'", requestID, s.cfg.TemplateFile, buildErr)
		s.reply(ctx, replier, requestID, MessageTemplateError)
		return TemplateError, nil
	}
	if buildErr != nil {
		return Failed, xerr.NewError(buildErr, "build invoice document", invoiceID)
	}

	baseURL, e := invoice.FileURI(s.cfg.ResourceRoot)
	if e != nil {
		return Failed, e
	}
	pdf, e := s.renderer.Render(ctx, render.Job{
		HTML:    document,
		BaseURL: baseURL,
		Title:   fmt.Sprintf(DocumentTitle, invoiceID),
		Lines:   invoice.DocumentLines(inv, s.cfg),
	})
	if e != nil {
		return Failed, e
	}

	filename := fmt.Sprintf(DocumentFilename, invoiceID)
	if e = replier.SendDocument(ctx, filename, pdf, fmt.Sprintf(DocumentCaption, invoiceID)); e != nil {
		return Failed, e
	}

	s.archive(ctx, requestID, invoiceID, filename, pdf, summary)
	return Delivered, nil
}

/*
fetch reads the header and the items at the same time and shapes them into
an Invoice. found is false when there is no header row.
*/
func (s *Service) fetch(ctx context.Context, invoiceID int64) (inv invoice.Invoice, found bool, e *xerr.Error) {
	var header invoice.Record
	var items []invoice.Record
	var headerErr, itemsErr *xerr.Error

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		header, found, headerErr = s.retriever.FetchHeader(groupCtx, invoiceID)
		if headerErr != nil {
			return errHeaderFetch
		}
		return nil
	})
	group.Go(func() error {
		items, itemsErr = s.retriever.FetchItems(groupCtx, invoiceID)
		if itemsErr != nil {
			return errItemsFetch
		}
		return nil
	})

	// the first failure cancels the other fetch, so report that one
	switch waitErr := group.Wait(); {
	case errors.Is(waitErr, errHeaderFetch):
		return inv, false, headerErr
	case errors.Is(waitErr, errItemsFetch):
		return inv, false, itemsErr
	}

	if !found {
		return inv, false, nil
	}
	return invoice.FromRecords(invoiceID, header, items), true, nil
}

func (s *Service) archive(ctx context.Context, requestID string, invoiceID int64, filename string, pdf []byte, summary string) {
	if s.archiver == nil {
		return
	}
	e := s.archiver.Archive(ctx, invoiceID, filename, pdf, summary)
	if e != nil {
		tl.Log(tl.Warning, palette.Yellow, "[%s] Unable to archive invoice %d: '%s'", requestID, invoiceID, e)
		return
	}
	tl.Log(tl.Info, palette.Green, "[%s] Archived '%s'", requestID, filename)
}

// reply sends a final text. A failure here is only logged, there is nothing left to tell the requester with.
func (s *Service) reply(ctx context.Context, replier Replier, requestID string, text string) {
	e := replier.SendText(ctx, text, false)
	if e != nil {
		tl.Log(tl.Warning, palette.Yellow, "[%s] Unable to send reply: '%s'", requestID, e)
	}
}
