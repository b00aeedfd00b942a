package notifier

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/pauljones0/shift-code-watcher/internal/models"
)

const redeemURL = "https://shift.gearboxsoftware.com/rewards"

// Message is a rendered e-mail.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

type emailData struct {
	Count     int
	Codes     []models.CodeRecord
	RedeemURL string
	SourceURL string
}

var htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  body { font-family: Arial, sans-serif; }
  .code { font-family: monospace; background-color: #f4f4f4; padding: 10px; border-radius: 5px; margin: 10px 0; }
  .code-block { background-color: #ffffff; border: 1px solid #ddd; border-radius: 5px; padding: 15px; margin: 10px 0; }
  h2 { color: #333; }
  .reward { font-weight: bold; color: #0066cc; }
  .date { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h2>New Borderlands 4 Shift Codes!</h2>
<p>Found <strong>{{.Count}}</strong> new shift code(s):</p>
{{range .Codes}}
<div class="code-block">
  <div class="reward">{{.Reward}}</div>
  <div class="code">{{.Code}}</div>
  <div class="date">Added: {{or .Added "unknown"}} | Expires: {{or .Expiry "unknown"}}</div>
</div>
{{end}}
<p><a href="{{.RedeemURL}}">Redeem codes on the Official SHiFT Website</a></p>
<p><small>Source: <a href="{{.SourceURL}}">{{.SourceURL}}</a></small></p>
</body>
</html>
`))

var textTmpl = texttemplate.Must(texttemplate.New("text").Parse(`New Borderlands 4 Shift Codes Available!

Found {{.Count}} new shift code(s):
{{range .Codes}}
{{.Reward}}
Code: {{.Code}}
Added: {{or .Added "unknown"}} | Expires: {{or .Expiry "unknown"}}
{{end}}
Redeem codes on the Official SHiFT Website:
{{.RedeemURL}}

Source: {{.SourceURL}}
`))

// Subject returns the e-mail subject for n new codes.
func Subject(n int) string {
	return fmt.Sprintf("New Borderlands 4 Shift Codes Available (%d new)", n)
}

// RenderEmail builds the HTML and plain-text message for codes.
func RenderEmail(recipient, sourceURL string, codes []models.CodeRecord) (Message, error) {
	data := emailData{
		Count:     len(codes),
		Codes:     codes,
		RedeemURL: redeemURL,
		SourceURL: sourceURL,
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := htmlTmpl.Execute(&htmlBuf, data); err != nil {
		return Message{}, fmt.Errorf("failed to render HTML body: %w", err)
	}
	if err := textTmpl.Execute(&textBuf, data); err != nil {
		return Message{}, fmt.Errorf("failed to render text body: %w", err)
	}

	return Message{
		To:       recipient,
		Subject:  Subject(len(codes)),
		HTMLBody: htmlBuf.String(),
		TextBody: textBuf.String(),
	}, nil
}
