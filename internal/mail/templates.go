package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<p>Olá, {{.Name}}!</p>
<p>Recebemos um pedido para redefinir a sua senha. O link abaixo expira em {{.TTL}}.</p>
<p><a href="{{.Link}}">Redefinir senha</a></p>
<p>Se você não fez este pedido, ignore este email.</p>`))

var verifyTemplate = template.Must(template.New("verify").Parse(`<p>Olá, {{.Name}}!</p>
<p>Confirme o seu endereço de email para concluir o cadastro:</p>
<p><a href="{{.Link}}">Verificar email</a></p>`))

type templateData struct {
	Name string
	Link string
	TTL  string
}

// PasswordReset builds the reset-password message.
func PasswordReset(to, name, link string, ttl time.Duration) (Message, error) {
	data := templateData{Name: name, Link: link, TTL: minutes(ttl)}
	html, err := render(resetTemplate, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Redefinição de senha",
		HTML:    html,
		Text: fmt.Sprintf("Olá, %s!\n\nUse o link abaixo para redefinir a sua senha (expira em %s):\n%s\n\nSe você não fez este pedido, ignore este email.\n",
			name, data.TTL, link),
	}, nil
}

// EmailVerification builds the verify-email message.
func EmailVerification(to, name, link string) (Message, error) {
	html, err := render(verifyTemplate, templateData{Name: name, Link: link})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Confirme o seu email",
		HTML:    html,
		Text:    fmt.Sprintf("Olá, %s!\n\nConfirme o seu email pelo link:\n%s\n", name, link),
	}, nil
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func minutes(d time.Duration) string {
	m := int(d.Minutes())
	if m == 1 {
		return "1 minuto"
	}
	return fmt.Sprintf("%d minutos", m)
}
