package notifier

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/smtp"
	"net/textproto"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/youthcamp/registration-api/internal/config"
	"github.com/youthcamp/registration-api/internal/models"
	"github.com/youthcamp/registration-api/internal/registration"
)

// SendMailFunc has the signature of smtp.SendMail.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends the registrant a confirmation and every administrator
// a short notice.
type EmailNotifier struct {
	addr      string
	auth      smtp.Auth
	from      string
	replyTo   string
	admins    []string
	eventName string
	appURL    string
	sendMail  SendMailFunc
	now       func() time.Time
}

func NewEmailNotifier(cfg *config.Config) *EmailNotifier {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &EmailNotifier{
		addr:      cfg.SMTPAddr(),
		auth:      auth,
		from:      cfg.SMTPFrom,
		replyTo:   cfg.ReplyTo,
		admins:    cfg.AdminEmails,
		eventName: cfg.EventName,
		appURL:    cfg.AppURL,
		sendMail:  smtp.SendMail,
		now:       time.Now,
	}
}

func (n *EmailNotifier) Name() string { return "email" }

// NotifyRegistration sends the confirmation first. Admin notices are sent
// even if it fails, the first error is returned.
func (n *EmailNotifier) NotifyRegistration(ctx context.Context, r registration.Receipt) error {
	view := newEmailView(r, n.eventName, n.appURL, n.replyTo)

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	text, html, err := render(confirmationText, confirmationHTML, view)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Registration confirmation - %s", n.eventName)
	record(n.send(ctx, r.Email, subject, text, html))

	if len(n.admins) > 0 {
		text, html, err := render(adminText, adminHTML, view)
		if err != nil {
			return err
		}
		subject := fmt.Sprintf("New registration #%d - %s", r.ID, r.FullName())
		for _, admin := range n.admins {
			if ctx.Err() != nil {
				record(ctx.Err())
				break
			}
			record(n.send(ctx, admin, subject, text, html))
		}
	}
	return firstErr
}

func (n *EmailNotifier) send(ctx context.Context, to, subject, text, html string) error {
	msg, err := n.buildMessage(to, subject, text, html)
	if err != nil {
		return err
	}

	// net/smtp has no context support; the call is abandoned, not aborted, on timeout.
	done := make(chan error, 1)
	go func() {
		done <- n.sendMail(n.addr, n.auth, n.from, []string{to}, msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail to %s: %w", to, ctx.Err())
	}
}

func (n *EmailNotifier) buildMessage(to, subject, text, html string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", text},
		{"text/html; charset=UTF-8", html},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&msg, "%s: %s\r\n", k, v) }
	header("From", mime.QEncoding.Encode("utf-8", n.eventName)+" <"+n.from+">")
	header("To", to)
	if n.replyTo != "" {
		header("Reply-To", n.replyTo)
	}
	header("Subject", mime.QEncoding.Encode("utf-8", subject))
	header("Date", n.now().Format(time.RFC1123Z))
	header("Message-ID", "<"+uuid.NewString()+"@"+domainOf(n.from)+">")
	header("MIME-Version", "1.0")
	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func domainOf(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 && i < len(addr)-1 {
		return strings.Trim(addr[i+1:], ">")
	}
	return "localhost"
}

type emailView struct {
	registration.Receipt
	EventName   string
	AppURL      string
	ReplyTo     string
	TypeLabel   string
	GenderLabel string
	Birth       string
	Created     string
	Year        int
}

func newEmailView(r registration.Receipt, eventName, appURL, replyTo string) emailView {
	gender := "Female"
	if r.Gender == models.GenderMale {
		gender = "Male"
	}
	return emailView{
		Receipt:     r,
		EventName:   eventName,
		AppURL:      appURL,
		ReplyTo:     replyTo,
		TypeLabel:   r.Type.String(),
		GenderLabel: gender,
		Birth:       r.BirthDate.Format("02.01.2006"),
		Created:     r.CreatedAt.Format("02.01.2006 15:04"),
		Year:        r.CreatedAt.Year(),
	}
}

func render(text *template.Template, html *htmltemplate.Template, view emailView) (string, string, error) {
	var tb, hb bytes.Buffer
	if err := text.Execute(&tb, view); err != nil {
		return "", "", fmt.Errorf("render %s: %w", text.Name(), err)
	}
	if err := html.Execute(&hb, view); err != nil {
		return "", "", fmt.Errorf("render %s: %w", html.Name(), err)
	}
	return tb.String(), hb.String(), nil
}
