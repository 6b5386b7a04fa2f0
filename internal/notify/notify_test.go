// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package notify

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/villasync/internal/config"
	"github.com/tomtom215/villasync/internal/metrics"
)

func testNotice() *Notice {
	total := 450.0
	return &Notice{
		BookingID:   "b-1",
		GuestName:   "Jane Doe",
		GuestEmail:  "jane@example.com",
		CheckIn:     "2025-03-01",
		CheckOut:    "2025-03-04",
		Nights:      3,
		Guests:      2,
		TotalAmount: &total,
		Currency:    "USD",
		Status:      "pending",
	}
}

func TestRenderHTML(t *testing.T) {
	n := testNotice()
	n.SpecialRequests = `<script>alert("x")</script>`

	body, err := RenderHTML(n)
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}

	for _, want := range []string{"Jane Doe", "2025-03-01", "450.00 USD", "Not provided", "&lt;script&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "<script>") {
		t.Error("guest input must be escaped")
	}
	if strings.Contains(body, "Guesty ID") {
		t.Error("Guesty ID line should be omitted when empty")
	}
}

func TestRenderHTML_NoTotal(t *testing.T) {
	n := testNotice()
	n.TotalAmount = nil
	n.GuestyBookingID = "G-7"

	body, err := RenderHTML(n)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, "Not quoted") || !strings.Contains(body, "G-7") {
		t.Errorf("body = %s", body)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{"", "none", false},
		{"none", "none", false},
		{"sendgrid", "sendgrid", false},
		{"smtp", "smtp", false},
		{"pigeon", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			n, err := New(config.NotifyConfig{Provider: tt.provider})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v", tt.provider, err)
			}
			if err == nil && n.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", n.Name(), tt.want)
			}
		})
	}
}

func TestSendGrid_Send(t *testing.T) {
	var got sendGridMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer SG.key" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sg := NewSendGrid(config.NotifyConfig{
		SendGridAPIKey:    "SG.key",
		SendGridURL:       server.URL,
		NotificationEmail: "owner@example.com",
		FromEmail:         "bookings@example.com",
		Timeout:           5 * time.Second,
	})

	if err := sg.Send(context.Background(), testNotice()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(got.Personalizations) != 1 || got.Personalizations[0].To[0].Email != "owner@example.com" {
		t.Errorf("personalizations = %+v", got.Personalizations)
	}
	if got.Personalizations[0].Subject != Subject || got.From.Email != "bookings@example.com" {
		t.Errorf("message = %+v", got)
	}
	if got.ReplyTo == nil || got.ReplyTo.Email != "jane@example.com" {
		t.Errorf("ReplyTo = %+v", got.ReplyTo)
	}
	if len(got.Content) != 1 || got.Content[0].Type != "text/html" || !strings.Contains(got.Content[0].Value, "Jane Doe") {
		t.Errorf("content = %+v", got.Content)
	}
}

func TestSendGrid_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer server.Close()

	sg := NewSendGrid(config.NotifyConfig{SendGridURL: server.URL, Timeout: 5 * time.Second})
	err := sg.Send(context.Background(), testNotice())
	if err == nil || !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "bad key") {
		t.Errorf("Send() error = %v", err)
	}
}

// startFakeSMTP accepts one session and returns the DATA payload on the channel.
func startFakeSMTP(t *testing.T) (string, int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				_ = tp.PrintfLine("250 localhost")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				_ = tp.PrintfLine("250 OK")
			case strings.HasPrefix(cmd, "DATA"):
				_ = tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
				data, _ := tp.ReadDotBytes()
				received <- string(data)
				_ = tp.PrintfLine("250 OK")
			case strings.HasPrefix(cmd, "QUIT"):
				_ = tp.PrintfLine("221 Bye")
				return
			default:
				_ = tp.PrintfLine("502 Not implemented")
			}
		}
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return host, port, received
}

func TestSMTP_Send(t *testing.T) {
	host, port, received := startFakeSMTP(t)

	s := NewSMTP(config.NotifyConfig{
		SMTPHost:          host,
		SMTPPort:          port,
		FromEmail:         "bookings@example.com",
		FromName:          "Lake Villa",
		NotificationEmail: "owner@example.com",
		Timeout:           5 * time.Second,
	})

	if err := s.Send(context.Background(), testNotice()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case data := <-received:
		r := textproto.NewReader(bufio.NewReader(strings.NewReader(data)))
		header, err := r.ReadMIMEHeader()
		if err != nil {
			t.Fatalf("parse headers: %v", err)
		}
		if header.Get("Subject") != Subject || header.Get("To") != "owner@example.com" {
			t.Errorf("headers = %v", header)
		}
		if !strings.Contains(data, "Jane Doe") {
			t.Error("body missing guest name")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSMTP_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	_ = ln.Close()

	s := NewSMTP(config.NotifyConfig{SMTPHost: "127.0.0.1", SMTPPort: addr.Port, Timeout: time.Second})
	if err := s.Send(context.Background(), testNotice()); err == nil {
		t.Error("Send() should fail when nothing is listening")
	}
}

type fakeNotifier struct {
	err      error
	calls    int
	deadline bool
	canceled bool
}

func (f *fakeNotifier) Name() string { return "fake" }

func (f *fakeNotifier) Send(ctx context.Context, _ *Notice) error {
	f.calls++
	_, f.deadline = ctx.Deadline()
	f.canceled = ctx.Err() != nil
	return f.err
}

func TestBestEffort_Notify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		outcome string
	}{
		{"sent", nil, "sent"},
		{"failed", errors.New("relay down"), "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeNotifier{err: tt.err}
			counter := metrics.Notifications.WithLabelValues("fake", tt.outcome)
			before := testutil.ToFloat64(counter)

			NewBestEffort(f, time.Second).Notify(context.Background(), testNotice())

			if f.calls != 1 || !f.deadline {
				t.Errorf("calls = %d, deadline = %v", f.calls, f.deadline)
			}
			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("%s counter delta = %v, want 1", tt.outcome, got)
			}
		})
	}
}

func TestBestEffort_DetachedFromCallerCancellation(t *testing.T) {
	f := &fakeNotifier{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewBestEffort(f, time.Second).Notify(ctx, testNotice())

	if f.calls != 1 || f.canceled {
		t.Errorf("calls = %d, canceled = %v; want one uncancelled send", f.calls, f.canceled)
	}
}

func TestBestEffort_Disabled(t *testing.T) {
	var nilBestEffort *BestEffort
	nilBestEffort.Notify(context.Background(), testNotice())

	NewBestEffort(nil, 0).Notify(context.Background(), testNotice())
	NewBestEffort(Noop{}, 0).Notify(context.Background(), testNotice())
}
