package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"invoice-bot/src/pkg/config"
	"invoice-bot/src/pkg/invoice"
	"invoice-bot/src/pkg/pipeline"
	"invoice-bot/src/pkg/render"
	"invoice-bot/src/pkg/store"
	"invoice-bot/src/pkg/util"
)

/*
renderOptions controls which invoice is rendered and where output is written.
*/
type renderOptions struct {
	ConfigPath  string `json:"config_path"`
	InvoiceID   int64  `json:"invoice_id"`
	FixturePath string `json:"fixture_path"`
	OutDir      string `json:"out_dir"`
	SkipPDF     bool   `json:"skip_pdf"`
}

/*
renderedInvoice is everything produced for one invoice.
*/
type renderedInvoice struct {
	Summary  string
	Document string
	PDF      []byte
}

/*
main is the CLI entry point. It renders one invoice without Telegram and
writes the summary, the markup document and the PDF next to each other.

Example:

	go run ./src/cmd/render-invoice -id 1001 -fixture ./resources/fixture.json -out ./tmp
*/
func main() {
	options := parseFlags()

	config.LoadDotEnv()
	config.InitializeConfig(options.ConfigPath).QuitIf(xerr.ErrorTypeError)

	invoiceLocal, e := config.Section[invoice.Config]("invoice")
	e.QuitIf(xerr.ErrorTypeError)
	storeLocal, e := config.Section[store.Config]("store")
	e.QuitIf(xerr.ErrorTypeError)
	renderLocal, e := config.Section[render.Config]("render")
	e.QuitIf(xerr.ErrorTypeError)

	invoiceCfg := invoice.InitializeConfig(invoiceLocal)
	storeCfg := store.InitializeConfig(storeLocal)
	renderCfg := render.InitializeConfig(renderLocal)
	if options.FixturePath != "" {
		storeCfg.Backend = store.BackendMemory
		storeCfg.FixturePath = options.FixturePath
	}
	config.CheckIfEnvVarsPresent(store.RequiredEnvVars(storeCfg.Backend)...)

	tl.Log(tl.Notice, palette.BlueBold, "Rendering invoice %d from %s store into '%s'", options.InvoiceID, storeCfg.Backend, options.OutDir)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	retriever, e := store.New(ctx, storeCfg)
	e.QuitIf(xerr.ErrorTypeError)

	var renderer render.Renderer
	if !options.SkipPDF {
		renderer, e = render.New(renderCfg)
		e.QuitIf(xerr.ErrorTypeError)
	}

	rendered, e := renderInvoice(ctx, retriever, renderer, invoiceCfg, options.InvoiceID)
	e.QuitIf(xerr.ErrorTypeError)

	writeOutputs(options, rendered).QuitIf(xerr.ErrorTypeError)
}

/*
parseFlags parses CLI flags and returns validated renderOptions.

Defaults:
  - config: ./cfg/config.json
  - output directory: ./tmp
  - store: the configured backend, unless -fixture is set
*/
func parseFlags() renderOptions {
	configFlag := flag.String("config", "./cfg/config.json", "Path to the JSON config file")
	idFlag := flag.String("id", "", "Invoice id to render")
	fixtureFlag := flag.String("fixture", "", "Read the invoice from this fixture JSON instead of the configured store")
	outDirFlag := flag.String("out", "./tmp", "Directory to write invoice_<id>.txt/.html/.pdf to")
	skipPDFFlag := flag.Bool("skip-pdf", false, "Only write the summary and the markup document")

	flag.Parse()

	util.RequiredFlag(idFlag, "id")
	util.EnsureFlags()

	invoiceID, parseErr := pipeline.ParseInvoiceID(*idFlag)
	xerr.QuitIfError(parseErr, "parse -id")

	return renderOptions{
		ConfigPath:  *configFlag,
		InvoiceID:   invoiceID,
		FixturePath: *fixtureFlag,
		OutDir:      *outDirFlag,
		SkipPDF:     *skipPDFFlag,
	}
}

/*
renderInvoice fetches one invoice and renders every output. renderer may be
nil, in which case no PDF is produced.
*/
func renderInvoice(ctx context.Context, retriever store.Retriever, renderer render.Renderer, cfg invoice.Config, invoiceID int64) (rendered renderedInvoice, e *xerr.Error) {
	header, found, e := retriever.FetchHeader(ctx, invoiceID)
	if e != nil {
		return rendered, e
	}
	if !found {
		e = xerr.NewErrorEC(fmt.Errorf("no header row"), "find invoice", "invoice_id", invoiceID, false)
		return rendered, e
	}
	items, e := retriever.FetchItems(ctx, invoiceID)
	if e != nil {
		return rendered, e
	}

	inv := invoice.FromRecords(invoiceID, header, items)
	tl.Log(tl.Info1, palette.Cyan, "Invoice %d has %d items", invoiceID, len(inv.Items))
	rendered.Summary = invoice.Summary(inv, cfg)

	template, e := invoice.LoadTemplate(filepath.Join(cfg.ResourceRoot, cfg.TemplateFile))
	if e != nil {
		return rendered, e
	}
	document, buildErr := invoice.BuildDocument(template, inv, cfg)
	if buildErr != nil {
		e = xerr.NewErrorEC(buildErr, "build invoice document", "template", cfg.TemplateFile, false)
		return rendered, e
	}
	rendered.Document = document

	if renderer == nil {
		return rendered, nil
	}
	baseURL, e := invoice.FileURI(cfg.ResourceRoot)
	if e != nil {
		return rendered, e
	}
	rendered.PDF, e = renderer.Render(ctx, render.Job{
		HTML:    document,
		BaseURL: baseURL,
		Title:   fmt.Sprintf(pipeline.DocumentTitle, invoiceID),
		Lines:   invoice.DocumentLines(inv, cfg),
	})
	return rendered, e
}

/*
writeOutputs saves every produced output as invoice_<id>.<ext> in the output directory.
*/
func writeOutputs(options renderOptions, rendered renderedInvoice) (e *xerr.Error) {
	mkdirErr := os.MkdirAll(options.OutDir, 0o755)
	if mkdirErr != nil {
		return xerr.NewErrorEC(mkdirErr, "create output directory", "out_dir", options.OutDir, false)
	}

	base := filepath.Join(options.OutDir, fmt.Sprintf("invoice_%d", options.InvoiceID))
	outputs := []struct {
		path string
		data []byte
	}{
		{base + ".txt", []byte(rendered.Summary)},
		{base + ".html", []byte(rendered.Document)},
	}
	if rendered.PDF != nil {
		outputs = append(outputs, struct {
			path string
			data []byte
		}{base + ".pdf", rendered.PDF})
	}

	for _, output := range outputs {
		writeErr := os.WriteFile(output.path, output.data, 0o644)
		if writeErr != nil {
			return xerr.NewErrorEC(writeErr, "write output file", "path", output.path, false)
		}
		tl.Log(tl.Info1, palette.Green, "Saved '%s' (%d bytes)", output.path, len(output.data))
	}
	return nil
}
