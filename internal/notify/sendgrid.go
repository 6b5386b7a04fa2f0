// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/villasync/internal/config"
)

// DefaultSendGridURL is the SendGrid v3 send endpoint.
const DefaultSendGridURL = "https://api.sendgrid.com/v3/mail/send"

// SendGrid delivers notices through the SendGrid v3 API.
type SendGrid struct {
	client   *http.Client
	url      string
	apiKey   string
	to       string
	from     string
	fromName string
}

// NewSendGrid creates a SendGrid notifier.
func NewSendGrid(cfg config.NotifyConfig) *SendGrid {
	url := cfg.SendGridURL
	if url == "" {
		url = DefaultSendGridURL
	}
	return &SendGrid{
		client:   &http.Client{Timeout: cfg.Timeout},
		url:      url,
		apiKey:   cfg.SendGridAPIKey,
		to:       cfg.NotificationEmail,
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
	}
}

func (s *SendGrid) Name() string { return "sendgrid" }

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPersonalization struct {
	To      []sendGridAddress `json:"to"`
	Subject string            `json:"subject"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridMessage struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	ReplyTo          *sendGridAddress          `json:"reply_to,omitempty"`
	Content          []sendGridContent         `json:"content"`
}

// Send posts the rendered notice. Any non-2xx response is an error.
func (s *SendGrid) Send(ctx context.Context, n *Notice) error {
	body, err := RenderHTML(n)
	if err != nil {
		return err
	}

	msg := sendGridMessage{
		Personalizations: []sendGridPersonalization{{
			To:      []sendGridAddress{{Email: s.to}},
			Subject: Subject,
		}},
		From:    sendGridAddress{Email: s.from, Name: s.fromName},
		Content: []sendGridContent{{Type: "text/html", Value: body}},
	}
	if n.GuestEmail != "" {
		msg.ReplyTo = &sendGridAddress{Email: n.GuestEmail, Name: n.GuestName}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal sendgrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create sendgrid request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
}
