package invoice

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// ErrTemplateStructure means the template has no <body> or no <style> section.
var ErrTemplateStructure = errors.New("template is missing a <body> or <style> section")

var (
	bodySectionRegexp  = regexp.MustCompile(`(?s)<body>(.*)</body>`)
	styleSectionRegexp = regexp.MustCompile(`(?s)<style>(.*?)</style>`)
)

/*
LoadTemplate reads the full markup template from disk.

It is read on every call; templates are never cached between requests.
*/
func LoadTemplate(templatePath string) (template string, e *xerr.Error) {
	templateBytes, readErr := os.ReadFile(templatePath)
	if readErr != nil {
		e = xerr.NewError(readErr, "read invoice template", templatePath)
		return "", e
	}
	return string(templateBytes), nil
}

/*
SplitTemplate extracts the inner body and style sections of a full template.

It returns ErrTemplateStructure if either section is missing.
*/
func SplitTemplate(template string) (body string, style string, err error) {
	bodyMatch := bodySectionRegexp.FindStringSubmatch(template)
	styleMatch := styleSectionRegexp.FindStringSubmatch(template)
	if bodyMatch == nil || styleMatch == nil {
		return "", "", ErrTemplateStructure
	}
	return bodyMatch[1], styleMatch[1], nil
}

/*
ResolveLogo rewrites the literal logo reference in a body fragment.

If the logo file exists under resourceRoot and decodes as an image, every
occurrence of the file name is replaced with the file's absolute file:// URI.
Otherwise the logo <img> element is replaced with the fallback heading.

It must run before Populate because it targets a literal asset reference,
not a placeholder token.
*/
func ResolveLogo(body string, cfg Config) string {
	logoPath := filepath.Join(cfg.ResourceRoot, cfg.LogoFile)
	logoImage := fmt.Sprintf(`<img src="%s" alt="Logo" class="logo">`, cfg.LogoFile)

	logoURI, ok := usableLogoURI(logoPath)
	if !ok {
		return strings.ReplaceAll(body, logoImage, cfg.LogoFallbackHeading)
	}
	return strings.ReplaceAll(body, cfg.LogoFile, logoURI)
}

func usableLogoURI(logoPath string) (logoURI string, ok bool) {
	info, statErr := os.Stat(logoPath)
	if statErr != nil || info.IsDir() {
		tl.Log(tl.Verbose, palette.PurpleDim, "Logo '%s' is %s, using fallback heading", logoPath, "not present")
		return "", false
	}

	_, openErr := imaging.Open(logoPath)
	if openErr != nil {
		tl.Log(tl.Warning, palette.PurpleBright, "Logo '%s' is not a readable image, using fallback heading: '%s'", logoPath, openErr)
		return "", false
	}

	logoURI, e := FileURI(logoPath)
	if e != nil {
		tl.Log(tl.Warning, palette.PurpleBright, "Unable to resolve logo path: '%s'", e)
		return "", false
	}
	return logoURI, true
}

/*
Assemble wraps a style block and a populated body into one self-contained
right-to-left UTF-8 document.
*/
func Assemble(style string, body string) string {
	var builder strings.Builder

	builder.WriteString(`<!DOCTYPE html><html lang="ar" dir="rtl"><head><meta charset="UTF-8">`)
	builder.WriteString("\n<style>")
	builder.WriteString(style)
	builder.WriteString("</style>\n")
	builder.WriteString("</head><body>")
	builder.WriteString(body)
	builder.WriteString("</body></html>\n")

	return builder.String()
}

/*
BuildDocument runs the document steps on an already loaded template:
split, logo resolution, token population and assembly.

A template structure failure is returned as ErrTemplateStructure so callers can
report it as a configuration fault.
*/
func BuildDocument(template string, inv Invoice, cfg Config) (document string, err error) {
	body, style, err := SplitTemplate(template)
	if err != nil {
		return "", err
	}

	body = ResolveLogo(body, cfg)
	body = Populate(body, inv, cfg)
	return Assemble(style, body), nil
}

/*
FileURI returns the absolute file:// URI of a local path.

Example:

	"./resources" -> "file:///srv/invoice-bot/resources"
*/
func FileURI(path string) (uri string, e *xerr.Error) {
	absolutePath, absErr := filepath.Abs(path)
	if absErr != nil {
		e = xerr.NewError(absErr, "resolve absolute path", path)
		return "", e
	}

	fileURL := url.URL{Scheme: "file", Path: filepath.ToSlash(absolutePath)}
	return fileURL.String(), nil
}
