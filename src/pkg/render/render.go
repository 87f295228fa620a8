// Package render converts an assembled invoice document into PDF bytes.
package render

import (
	"context"
	"fmt"
	"os/exec"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"invoice-bot/src/pkg/config"
	"invoice-bot/src/pkg/util"
)

// Engine names accepted in the "engines" config field.
const (
	EngineWKHTMLToPDF = "wkhtmltopdf"
	EngineChrome      = "chrome"
	EngineFallback    = "fallback"
)

// pdfMagic starts every valid PDF file.
const pdfMagic = "%PDF"

/*
Job is one document to render.

HTML is the full self-contained document. BaseURL (a file:// URI of the
resource directory) resolves relative asset references. Title and Lines
(the same content as plain text, every item included) are only used by
engines that cannot lay out HTML.
*/
type Job struct {
	HTML    string
	BaseURL string
	Title   string
	Lines   []string
}

// Renderer is the rendering collaborator of the pipeline.
type Renderer interface {
	Render(ctx context.Context, job Job) (pdf []byte, e *xerr.Error)
}

// Engine is a Renderer with a name for logs.
type Engine interface {
	Renderer
	Name() string
}

type Config struct {
	Engines          []string `json:"engines,omitempty"`
	WKHTMLToPDFPath  string   `json:"wkhtmltopdf_path,omitempty"`
	ChromePath       string   `json:"chrome_path,omitempty"`
	TimeoutSeconds   int      `json:"timeout_seconds,omitempty"`
	TempDir          string   `json:"temp_dir,omitempty"`
	FallbackFontPath string   `json:"fallback_font_path,omitempty"` // UTF-8 TTF, fallback engine is off without it
}

func DefaultValueConfig() Config {
	return Config{
		Engines:         []string{EngineWKHTMLToPDF, EngineChrome, EngineFallback},
		WKHTMLToPDFPath: "wkhtmltopdf",
		ChromePath:      "chromium",
		TimeoutSeconds:  60,
	}
}

/*
If local Config is provided - use it. Replace all missing values with default ones.

If not provided - just use defaultConfig.
*/
func InitializeConfig(localConfig *Config) (cfg Config) {
	defaultConfig := DefaultValueConfig()
	if localConfig == nil {
		tl.Log(tl.Info, palette.Purple, "%s config is %s, keeping %s", "render", "not provided", "default render config")
		return defaultConfig
	}

	cfg = *localConfig
	tl.ApplyDefaults(&cfg, defaultConfig, func(field string, defVal any) {
		tl.Log(
			tl.Info, palette.Purple,
			"%s field is %s in %s configuration. Using default value: %v",
			field, "missing", config.GetPackageName(), tl.PrettyForStderr(defVal),
		)
	})

	tl.Log(tl.Info, palette.Green, "%s config was %s, using %s", "render", "provided", "local render config")
	tl.LogJSON(tl.Verbose, palette.CyanDim, fmt.Sprintf("%s configuration", config.GetPackageName()), cfg)
	return cfg
}

/*
New builds a Chain of the configured engines in order.

External engines whose binary cannot be found are skipped with a warning.
The fallback engine is skipped when no font is configured. It is an error
if no engine is left.
*/
func New(cfg Config) (chain *Chain, e *xerr.Error) {
	timeout := util.Seconds(cfg.TimeoutSeconds, 5, 600)
	engines := make([]Engine, 0, len(cfg.Engines))

	for _, name := range cfg.Engines {
		switch name {
		case EngineWKHTMLToPDF:
			if binary, ok := lookPath(name, cfg.WKHTMLToPDFPath); ok {
				engines = append(engines, NewWKHTMLToPDF(binary, timeout, cfg.TempDir))
			}
		case EngineChrome:
			if binary, ok := lookPath(name, cfg.ChromePath); ok {
				engines = append(engines, NewChrome(binary, timeout, cfg.TempDir))
			}
		case EngineFallback:
			if cfg.FallbackFontPath == "" {
				tl.Log(tl.Warning, palette.Yellow, "%s engine is %s: no fallback_font_path configured", name, "disabled")
				continue
			}
			engines = append(engines, NewFallback(cfg.FallbackFontPath))
		default:
			tl.Log(tl.Warning, palette.Yellow, "Unknown render engine '%s' is %s", name, "skipped")
		}
	}

	if len(engines) == 0 {
		e = xerr.NewError(fmt.Errorf("no render engine available"), "build renderer", cfg.Engines)
		return nil, e
	}
	return NewChain(engines...), nil
}

func lookPath(engineName string, binary string) (resolved string, ok bool) {
	resolved, lookErr := exec.LookPath(binary)
	if lookErr != nil {
		tl.Log(tl.Warning, palette.Yellow, "%s engine is %s: '%s' not found", engineName, "disabled", binary)
		return "", false
	}
	tl.Log(tl.Info, palette.Cyan, "%s engine is %s at '%s'", engineName, "enabled", resolved)
	return resolved, true
}

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return len(data) >= len(pdfMagic) && string(data[:len(pdfMagic)]) == pdfMagic
}
