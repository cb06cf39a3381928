// Package render produces the plaintext and HTML bodies of outbound
// messages from embedded templates. Message bodies are markdown; the HTML
// variant is converted with goldmark and sanitized with bluemonday.
package render

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/Pack144/packman-sub000/shared/domain"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	TextBody = "message_body.txt"
	HTMLBody = "message_body.html"
)

//go:embed templates/*
var templateFS embed.FS

// Site identifies the installation in every email footer.
type Site struct {
	Name     string
	Domain   string
	Protocol string
}

func (s Site) URL() string {
	return fmt.Sprintf("%s://%s/", s.Protocol, s.Domain)
}

// Context is what one recipient's body is rendered from.
type Context struct {
	Site           Site
	Recipient      string // display form, e.g. "Ada Parent <ada@example.org>"
	Message        *domain.Message
	Via            []string
	UnsubscribeURL string
}

type Renderer struct {
	text   *texttemplate.Template
	html   *htmltemplate.Template
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func New() (*Renderer, error) {
	r := &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}

	text, err := texttemplate.New("").
		Funcs(texttemplate.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}
	html, err := htmltemplate.New("").
		Funcs(htmltemplate.FuncMap{"join": strings.Join, "markdown": r.Markdown}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html templates: %w", err)
	}
	r.text, r.html = text, html
	return r, nil
}

// Render executes the template named key with data.
func (r *Renderer) Render(key string, data any) (string, error) {
	var buf bytes.Buffer
	var err error
	switch {
	case r.html.Lookup(key) != nil:
		err = r.html.ExecuteTemplate(&buf, key, data)
	case r.text.Lookup(key) != nil:
		err = r.text.ExecuteTemplate(&buf, key, data)
	default:
		return "", fmt.Errorf("unknown template %q", key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", key, err)
	}
	return buf.String(), nil
}

// Markdown converts a markdown body into sanitized HTML.
func (r *Renderer) Markdown(body string) (htmltemplate.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return htmltemplate.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}
