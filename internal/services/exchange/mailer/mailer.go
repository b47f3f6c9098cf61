// Package mailer delivers exchange notification emails.
package mailer

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"sync"
)

// Mailer sends one email to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Dev logs emails instead of sending them. It is the default in
// development so codes show up in the server log.
type Dev struct{}

// Send logs the email.
func (Dev) Send(_ context.Context, to, subject, body string) error {
	log.Printf("email to=%s subject=%q\n%s", to, subject, body)
	return nil
}

// SMTP delivers email through a plain SMTP relay.
type SMTP struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
}

// Send submits the email to the configured relay.
func (m SMTP) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(m.Addr) == "" {
		return fmt.Errorf("smtp address is required")
	}

	host := m.Addr
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, host)
	}

	message := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(m.Addr, auth, m.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Recorded is one captured email.
type Recorded struct {
	To      string
	Subject string
	Body    string
}

// Recorder captures emails for tests.
type Recorder struct {
	mu     sync.Mutex
	emails []Recorded
}

// Send records the email.
func (r *Recorder) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, Recorded{To: to, Subject: subject, Body: body})
	return nil
}

// Emails returns a copy of everything sent so far.
func (r *Recorder) Emails() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.emails...)
}

// Reset clears captured emails.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = nil
}
