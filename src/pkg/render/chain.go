package render

import (
	"context"
	"fmt"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// Chain tries its engines in order and returns the first valid PDF.
type Chain struct {
	engines []Engine
}

func NewChain(engines ...Engine) *Chain {
	return &Chain{engines: engines}
}

// Names lists the engines in the order they are tried.
func (c *Chain) Names() (names []string) {
	for _, engine := range c.engines {
		names = append(names, engine.Name())
	}
	return names
}

/*
Render returns the output of the first engine that succeeds.

A failing engine is logged and the next one is tried. A cancelled context
stops the chain. The error of the last engine is returned when all fail.
*/
func (c *Chain) Render(ctx context.Context, job Job) (pdf []byte, e *xerr.Error) {
	if len(c.engines) == 0 {
		return nil, xerr.NewError(fmt.Errorf("chain is empty"), "render document", nil)
	}

	for _, engine := range c.engines {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, xerr.NewError(ctxErr, "render document", engine.Name())
		}

		pdf, e = engine.Render(ctx, job)
		if e == nil && IsPDF(pdf) {
			tl.Log(tl.Info1, palette.Green, "Rendered document with %s engine (%d bytes)", engine.Name(), len(pdf))
			return pdf, nil
		}
		if e == nil {
			e = xerr.NewError(fmt.Errorf("output does not start with %s", pdfMagic), "validate engine output", engine.Name())
		}
		tl.Log(tl.Warning, palette.PurpleBright, "%s engine %s: '%s'", engine.Name(), "failed", e)
	}
	return nil, e
}
