package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"research-notify/internal/config"
	"research-notify/internal/domain/entity"
)

// Payload is a rendered notification body.
type Payload struct {
	HTML string
}

// Renderer turns a notification into a channel payload. It must not perform I/O.
type Renderer interface {
	Render(n *entity.Notification) (Payload, error)
}

// Fields are inserted verbatim. Callers are responsible for sanitizing
// title, message and additionalContent before scheduling.
const emailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: {{.HeaderColor}}; color: white; padding: 10px 20px; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .footer { font-size: 12px; color: #666; padding: 10px 20px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Title}}</h1>
        </div>
        <div class="content">
            <p>Dear {{.RecipientName}},</p>
            <p>{{.Message}}</p>
            {{.AdditionalContent}}
        </div>
        <div class="footer">
            <p>{{.Footer}}</p>
        </div>
    </div>
</body>
</html>
`

type templateData struct {
	Title             string
	RecipientName     string
	Message           string
	AdditionalContent string
	HeaderColor       string
	Footer            string
}

// HTMLRenderer renders the branded HTML email body. The same document is used
// for the system inbox so both views match.
type HTMLRenderer struct {
	tmpl     *template.Template
	branding config.Branding
}

// NewHTMLRenderer parses the template once. The returned renderer is safe
// for concurrent use.
func NewHTMLRenderer(branding config.Branding) (*HTMLRenderer, error) {
	if err := branding.Validate(); err != nil {
		return nil, fmt.Errorf("branding: %w", err)
	}
	tmpl, err := template.New("email").Parse(emailTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse email template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl, branding: branding}, nil
}

func (r *HTMLRenderer) Render(n *entity.Notification) (Payload, error) {
	if n == nil {
		return Payload{}, ErrInvalidRequest
	}

	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, templateData{
		Title:             n.Title,
		RecipientName:     n.RecipientName,
		Message:           n.Message,
		AdditionalContent: n.AdditionalContent(),
		HeaderColor:       r.branding.HeaderColor,
		Footer:            r.branding.Footer(),
	})
	if err != nil {
		return Payload{}, fmt.Errorf("render %s: %w", n.ID, err)
	}
	return Payload{HTML: buf.String()}, nil
}
