package email

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"strings"
	texttemplate "text/template"

	"conduit/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// Parsed once; a broken embedded template fails at startup rather than on first send.
var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

type templateSet interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

// templateRenderer renders the embedded email templates. The email "welcome" is
// made of welcome_subject.txt, welcome.html and welcome.txt.
type templateRenderer struct {
	html templateSet
	text templateSet
}

func NewTemplateRenderer() domain.EmailTemplateRenderer {
	return &templateRenderer{html: htmlTemplates, text: textTemplates}
}

func (r *templateRenderer) Render(name string, data any) (subject, htmlBody, textBody string, err error) {
	if subject, err = execute(r.text, name+"_subject.txt", data); err != nil {
		return "", "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if htmlBody, err = execute(r.html, name+".html", data); err != nil {
		return "", "", "", fmt.Errorf("render %s html: %w", name, err)
	}
	if textBody, err = execute(r.text, name+".txt", data); err != nil {
		return "", "", "", fmt.Errorf("render %s text: %w", name, err)
	}
	return strings.TrimSpace(subject), htmlBody, textBody, nil
}

func execute(set templateSet, name string, data any) (string, error) {
	var b strings.Builder
	if err := set.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
