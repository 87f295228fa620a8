package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

/*
CommandEngine renders through an external binary that reads an HTML file
and writes a PDF file.
*/
type CommandEngine struct {
	name    string
	binary  string
	timeout time.Duration
	tempDir string
	args    func(htmlPath string, pdfPath string) []string
}

// NewWKHTMLToPDF renders with wkhtmltopdf.
func NewWKHTMLToPDF(binary string, timeout time.Duration, tempDir string) *CommandEngine {
	return &CommandEngine{
		name:    EngineWKHTMLToPDF,
		binary:  binary,
		timeout: timeout,
		tempDir: tempDir,
		args: func(htmlPath string, pdfPath string) []string {
			return []string{
				"--quiet",
				"--encoding", "utf-8",
				"--page-size", "A4",
				"--enable-local-file-access",
				"--print-media-type",
				htmlPath, pdfPath,
			}
		},
	}
}

// NewChrome renders with a headless Chrome or Chromium.
func NewChrome(binary string, timeout time.Duration, tempDir string) *CommandEngine {
	return &CommandEngine{
		name:    EngineChrome,
		binary:  binary,
		timeout: timeout,
		tempDir: tempDir,
		args: func(htmlPath string, pdfPath string) []string {
			return []string{
				"--headless",
				"--disable-gpu",
				"--no-sandbox",
				"--disable-dev-shm-usage",
				"--allow-file-access-from-files",
				"--no-pdf-header-footer",
				"--print-to-pdf=" + pdfPath,
				"file://" + filepath.ToSlash(htmlPath),
			}
		},
	}
}

func (c *CommandEngine) Name() string {
	return c.name
}

/*
Render writes the document to a temporary directory, runs the binary on it
and returns the produced PDF. The directory is removed afterwards.
*/
func (c *CommandEngine) Render(ctx context.Context, job Job) (pdf []byte, e *xerr.Error) {
	workDir, mkdirErr := os.MkdirTemp(c.tempDir, "invoice-render-*")
	if mkdirErr != nil {
		return nil, xerr.NewError(mkdirErr, "create render directory", c.tempDir)
	}
	defer os.RemoveAll(workDir)

	htmlPath := filepath.Join(workDir, "invoice.html")
	pdfPath := filepath.Join(workDir, "invoice.pdf")

	writeErr := os.WriteFile(htmlPath, []byte(WithBaseURL(job.HTML, job.BaseURL)), 0o600)
	if writeErr != nil {
		return nil, xerr.NewError(writeErr, "write render input", htmlPath)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, c.binary, c.args(htmlPath, pdfPath)...)
	cmd.Stderr = &stderr
	cmd.Dir = workDir
	cmd.WaitDelay = 5 * time.Second // browsers leave helper processes holding stderr

	tl.Log(tl.Debug, palette.Blue, "Running %s engine '%s'", c.name, c.binary)
	startTime := time.Now()
	runErr := cmd.Run()
	if runErr != nil {
		return nil, xerr.NewError(runErr, fmt.Sprintf("run %s", c.name), strings.TrimSpace(stderr.String()))
	}

	pdf, readErr := os.ReadFile(pdfPath)
	if readErr != nil {
		return nil, xerr.NewError(readErr, fmt.Sprintf("read %s output", c.name), pdfPath)
	}
	if !IsPDF(pdf) {
		return nil, xerr.NewError(fmt.Errorf("output does not start with %s", pdfMagic), fmt.Sprintf("validate %s output", c.name), len(pdf))
	}

	tl.Log(tl.Debug1, palette.Green, "%s engine produced %d bytes in %s", c.name, len(pdf), time.Since(startTime).Round(time.Millisecond))
	return pdf, nil
}

/*
WithBaseURL inserts a <base href> right after the opening <head> tag so
relative references resolve against baseURL. The document is returned
unchanged when baseURL is empty or there is no <head>.
*/
func WithBaseURL(document string, baseURL string) string {
	if baseURL == "" {
		return document
	}
	headIndex := strings.Index(document, "<head>")
	if headIndex < 0 {
		return document
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	insertAt := headIndex + len("<head>")
	return document[:insertAt] + `<base href="` + html.EscapeString(baseURL) + `">` + document[insertAt:]
}
