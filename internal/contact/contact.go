// Package contact delivers contact form messages through EmailJS.
package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=./mock/contact.go -package=mock -source=contact.go

const (
	// DefaultURL is EmailJS send endpoint.
	DefaultURL = "https://api.emailjs.com/api/v1.0/email/send"
	// DefaultTimeout ...
	DefaultTimeout = 6 * time.Second

	maxLoggedBodyLength = 500
)

// nolint:gochecknoglobals
var log = logrus.WithFields(logrus.Fields{
	"layer":   "contact",
	"package": "emailjs",
})

// Message ...
type Message struct {
	Name    string
	Email   string
	Message string
}

// Sender sends contact messages. Send reports whether the message was accepted and never returns an error.
type Sender interface {
	Send(ctx context.Context, msg Message) bool
}

// Config ...
type Config struct {
	URL        string
	ServiceID  string
	TemplateID string
	UserID     string
	Timeout    time.Duration
}

// Configured reports whether all EmailJS credentials are set.
func (c Config) Configured() bool {
	return c.ServiceID != "" && c.TemplateID != "" && c.UserID != ""
}

type payload struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams templateParams `json:"template_params"`
}

type templateParams struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type emailjs struct {
	cfg    Config
	client *http.Client
}

// New returns EmailJS sender.
func New(cfg Config) Sender {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &emailjs{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (e *emailjs) Send(ctx context.Context, msg Message) bool {
	if !e.cfg.Configured() {
		log.Warn("EmailJS is not configured, message is not sent")
		return false
	}

	b, err := json.Marshal(payload{
		ServiceID:  e.cfg.ServiceID,
		TemplateID: e.cfg.TemplateID,
		UserID:     e.cfg.UserID,
		TemplateParams: templateParams{
			Name:    msg.Name,
			Email:   msg.Email,
			Message: msg.Message,
		},
	})
	if err != nil {
		log.WithError(err).Error("failed to marshal payload")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(b))
	if err != nil {
		log.WithError(err).Error("failed to create request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			log.WithError(err).Error("EmailJS request timed out")
		} else {
			log.WithError(err).Error("EmailJS request failed")
		}
		return false
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return true
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyLength))
	log.WithField("status", resp.StatusCode).
		WithField("body", string(body)).
		Error(fmt.Sprintf("EmailJS responded with %d", resp.StatusCode))

	return false
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
