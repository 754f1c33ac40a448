// ABOUTME: Renders account emails from Markdown templates
// ABOUTME: Markdown is the plain-text part; goldmark renders the HTML part

package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
)

const verificationTemplate = `# Welcome to {{.Product}}, {{.Username}}!

Please confirm your email address to finish setting up your account.

[Verify your email]({{.URL}})

If the button does not work, paste this link into your browser:

{{.URL}}

If you did not create an account, you can ignore this message.
`

const passwordResetTemplate = `# Reset your password

Hi {{.Username}}, we received a request to reset the password for your {{.Product}} account.

[Reset your password]({{.URL}})

This link expires in {{.Expiry}}. If you did not ask for a reset, you can ignore this message.

{{.URL}}
`

const htmlLayout = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="font-family: sans-serif; max-width: 560px; margin: 0 auto;">
{{.Body}}
</body>
</html>
`

var (
	verificationTmpl  = texttemplate.Must(texttemplate.New("verification").Parse(verificationTemplate))
	passwordResetTmpl = texttemplate.Must(texttemplate.New("password_reset").Parse(passwordResetTemplate))
	layoutTmpl        = template.Must(template.New("layout").Parse(htmlLayout))
)

// Composer builds the messages sent by account flows.
type Composer struct {
	Product string
	md      goldmark.Markdown
}

// NewComposer creates a Composer that names product in its messages.
func NewComposer(product string) *Composer {
	return &Composer{Product: product, md: goldmark.New()}
}

// Verification renders the email-verification message.
func (c *Composer) Verification(to, username, url string) (Message, error) {
	return c.render(verificationTmpl, to, "Verify your email", map[string]string{
		"Product":  c.Product,
		"Username": username,
		"URL":      url,
	})
}

// PasswordReset renders the password-reset message. expiry is shown as-is.
func (c *Composer) PasswordReset(to, username, url, expiry string) (Message, error) {
	return c.render(passwordResetTmpl, to, "Reset your password", map[string]string{
		"Product":  c.Product,
		"Username": username,
		"URL":      url,
		"Expiry":   expiry,
	})
}

func (c *Composer) render(tmpl *texttemplate.Template, to, subject string, data map[string]string) (Message, error) {
	var md bytes.Buffer
	if err := tmpl.Execute(&md, data); err != nil {
		return Message{}, fmt.Errorf("rendering %s: %w", tmpl.Name(), err)
	}

	var body bytes.Buffer
	if err := c.md.Convert(md.Bytes(), &body); err != nil {
		return Message{}, fmt.Errorf("converting %s to html: %w", tmpl.Name(), err)
	}

	var html bytes.Buffer
	if err := layoutTmpl.Execute(&html, struct {
		Subject string
		Body    template.HTML
	}{subject, template.HTML(body.String())}); err != nil {
		return Message{}, fmt.Errorf("rendering layout: %w", err)
	}

	return Message{
		To:      to,
		Subject: subject,
		Text:    strings.TrimSpace(md.String()) + "\n",
		HTML:    html.String(),
	}, nil
}
