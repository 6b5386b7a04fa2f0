// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/logging"
)

// SMTP delivers notices through a mail relay.
type SMTP struct {
	host     string
	port     int
	username string
	password string
	useTLS   bool
	from     string
	fromName string
	to       string
	timeout  time.Duration
}

// NewSMTP creates an SMTP notifier.
func NewSMTP(cfg config.NotifyConfig) *SMTP {
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	return &SMTP{
		host:     cfg.SMTPHost,
		port:     port,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		useTLS:   cfg.SMTPUseTLS,
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
		to:       cfg.NotificationEmail,
		timeout:  cfg.Timeout,
	}
}

func (s *SMTP) Name() string { return "smtp" }

// Send renders the notice and delivers it in one SMTP session.
func (s *SMTP) Send(ctx context.Context, n *Notice) error {
	body, err := RenderHTML(n)
	if err != nil {
		return err
	}
	return s.deliver(ctx, s.buildMessage(body))
}

func (s *SMTP) buildMessage(htmlBody string) string {
	var msg strings.Builder

	fromName := s.fromName
	if fromName == "" {
		fromName = "Villa Bookings"
	}

	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", fromName), s.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", s.to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", Subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	return msg.String()
}

func (s *SMTP) deliver(ctx context.Context, msg string) error {
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if s.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if s.useTLS {
		tlsConfig := &tls.Config{
			ServerName: s.host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if s.username != "" && s.password != "" {
		auth := smtp.PlainAuth("", s.username, s.password, s.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(s.to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	// The message is accepted once Data closes.
	if err := client.Quit(); err != nil {
		logging.Debug().Err(err).Msg("SMTP QUIT failed after delivery")
	}
	return nil
}
