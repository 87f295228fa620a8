package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/tuumbleweed/xerr"
)

const fallbackFontFamily = "invoice"

/*
FallbackEngine lays out the plain text lines of an invoice with gofpdf, for
hosts where no HTML engine is installed.

It does not read the HTML at all. gofpdf does not shape Arabic letters, so
the output is a readable record, not a copy of the styled document.
*/
type FallbackEngine struct {
	fontPath string
}

func NewFallback(fontPath string) *FallbackEngine {
	return &FallbackEngine{fontPath: fontPath}
}

func (f *FallbackEngine) Name() string {
	return EngineFallback
}

func (f *FallbackEngine) Render(ctx context.Context, job Job) (pdf []byte, e *xerr.Error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, xerr.NewError(ctxErr, "render fallback document", nil)
	}

	document := gofpdf.New("P", "mm", "A4", "")
	document.SetMargins(15, 15, 15)
	document.SetAutoPageBreak(true, 15)
	document.AddUTF8Font(fallbackFontFamily, "", f.fontPath)
	document.AddPage()

	if job.Title != "" {
		document.SetFont(fallbackFontFamily, "", 16)
		document.MultiCell(0, 9, job.Title, "B", "R", false)
		document.Ln(4)
	}

	document.SetFont(fallbackFontFamily, "", 11)
	for _, line := range job.Lines {
		document.MultiCell(0, 6, line, "", "R", false)
	}

	if document.Err() {
		return nil, xerr.NewError(document.Error(), "lay out fallback document", f.fontPath)
	}

	var buffer bytes.Buffer
	outputErr := document.Output(&buffer)
	if outputErr != nil {
		return nil, xerr.NewError(outputErr, "write fallback document", f.fontPath)
	}
	if !IsPDF(buffer.Bytes()) {
		return nil, xerr.NewError(fmt.Errorf("output does not start with %s", pdfMagic), "validate fallback document", buffer.Len())
	}
	return buffer.Bytes(), nil
}
