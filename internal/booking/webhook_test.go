// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package booking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/villasync/internal/metrics"
	"github.com/tomtom215/villasync/internal/models"
)

type recordingReservations struct {
	upserts []*models.Reservation
	seen    map[string]bool
	err     error
}

func (r *recordingReservations) UpsertReservation(_ context.Context, res *models.Reservation) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	r.upserts = append(r.upserts, res)
	created := !r.seen[res.GuestyBookingID]
	r.seen[res.GuestyBookingID] = true
	return created, nil
}

const validWebhook = `{
	"_id": "G-77",
	"listingId": "L1",
	"status": "confirmed",
	"checkIn": "2025-03-01T15:00:00Z",
	"checkOut": "2025-03-04",
	"guest": {"fullName": "Jane Doe", "email": "jane@example.com", "phone": "+94771234567"},
	"occupancy": {"numberOfGuests": 3},
	"money": {"finalPrice": 320.5, "currency": "USD"},
	"specialRequests": "Airport pickup"
}`

func TestWebhook_CreateThenUpdate(t *testing.T) {
	res := &recordingReservations{}
	p := NewWebhookProcessor(res, "")

	first, err := p.Process(context.Background(), []byte(validWebhook), "")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if first.Action != ActionCreated || first.GuestyBookingID != "G-77" {
		t.Errorf("first = %+v", first)
	}

	second, err := p.Process(context.Background(), []byte(validWebhook), "")
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if second.Action != ActionUpdated {
		t.Errorf("second Action = %q, want updated", second.Action)
	}

	r := res.upserts[0]
	if r.CheckIn.Format("2006-01-02") != "2025-03-01" || r.CheckOut.Format("2006-01-02") != "2025-03-04" {
		t.Errorf("dates = %v %v", r.CheckIn, r.CheckOut)
	}
	if r.GuestsCount != 3 || r.TotalAmount != 320.5 || r.Currency != "USD" {
		t.Errorf("reservation = %+v", r)
	}
	if r.GuestPhone == nil || *r.GuestPhone != "+94771234567" {
		t.Errorf("GuestPhone = %v", r.GuestPhone)
	}
	if r.SpecialRequests == nil || *r.SpecialRequests != "Airport pickup" {
		t.Errorf("SpecialRequests = %v", r.SpecialRequests)
	}
	if r.ListingID != "L1" || r.BookingStatus != "confirmed" {
		t.Errorf("listing/status = %q/%q", r.ListingID, r.BookingStatus)
	}
}

func TestWebhook_Signature(t *testing.T) {
	secret := "whsec-test"
	body := []byte(validWebhook)
	good := Sign([]byte(secret), body)

	tests := []struct {
		name      string
		signature string
		wantErr   bool
	}{
		{"valid", good, false},
		{"valid uppercase hex", strings.ToUpper(good), false},
		{"missing", "", true},
		{"wrong", Sign([]byte("other"), body), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &recordingReservations{}
			p := NewWebhookProcessor(res, secret)

			_, err := p.Process(context.Background(), body, tt.signature)
			if tt.wantErr {
				if !errors.Is(err, ErrBadSignature) {
					t.Errorf("Process() error = %v, want ErrBadSignature", err)
				}
				if len(res.upserts) != 0 {
					t.Error("rejected delivery was stored")
				}
				return
			}
			if err != nil {
				t.Errorf("Process() error = %v", err)
			}
		})
	}
}

func TestWebhook_NoSecretSkipsSignature(t *testing.T) {
	p := NewWebhookProcessor(&recordingReservations{}, "")
	if err := p.Verify([]byte("{}"), "garbage"); err != nil {
		t.Errorf("Verify() error = %v, want nil without a secret", err)
	}
}

func TestWebhook_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing id", `{"status":"confirmed","checkIn":"2025-03-01","checkOut":"2025-03-02","guest":{"fullName":"A B","email":"a@b.co"},"occupancy":{"numberOfGuests":1},"money":{"finalPrice":1}}`, "Invalid or missing booking ID"},
		{"missing status", `{"_id":"G","checkIn":"2025-03-01","checkOut":"2025-03-02","guest":{"fullName":"A B","email":"a@b.co"},"occupancy":{"numberOfGuests":1},"money":{"finalPrice":1}}`, "Invalid or missing booking status"},
		{"missing dates", `{"_id":"G","status":"confirmed","checkIn":"2025-03-01","guest":{"fullName":"A B","email":"a@b.co"},"occupancy":{"numberOfGuests":1},"money":{"finalPrice":1}}`, "Check-in and check-out dates are required"},
		{"missing guest", `{"_id":"G","status":"confirmed","checkIn":"2025-03-01","checkOut":"2025-03-02","occupancy":{"numberOfGuests":1},"money":{"finalPrice":1}}`, "Guest information (name and email) is required"},
		{"bad email", `{"_id":"G","status":"confirmed","checkIn":"2025-03-01","checkOut":"2025-03-02","guest":{"fullName":"A B","email":"nope"},"occupancy":{"numberOfGuests":1},"money":{"finalPrice":1}}`, "Invalid guest email format"},
		{"zero guests", `{"_id":"G","status":"confirmed","checkIn":"2025-03-01","checkOut":"2025-03-02","guest":{"fullName":"A B","email":"a@b.co"},"occupancy":{"numberOfGuests":0},"money":{"finalPrice":1}}`, "Valid guest count is required"},
		{"string guests", `{"_id":"G","status":"confirmed","checkIn":"2025-03-01","checkOut":"2025-03-02","guest":{"fullName":"A B","email":"a@b.co"},"occupancy":{"numberOfGuests":"2"},"money":{"finalPrice":1}}`, "Valid guest count is required"},
		{"negative price", `{"_id":"G","status":"confirmed","checkIn":"2025-03-01","checkOut":"2025-03-02","guest":{"fullName":"A B","email":"a@b.co"},"occupancy":{"numberOfGuests":1},"money":{"finalPrice":-1}}`, "Valid final price is required"},
		{"string price", `{"_id":"G","status":"confirmed","checkIn":"2025-03-01","checkOut":"2025-03-02","guest":{"fullName":"A B","email":"a@b.co"},"occupancy":{"numberOfGuests":1},"money":{"finalPrice":"100"}}`, "Valid final price is required"},
		{"null price", `{"_id":"G","status":"confirmed","checkIn":"2025-03-01","checkOut":"2025-03-02","guest":{"fullName":"A B","email":"a@b.co"},"occupancy":{"numberOfGuests":1},"money":{"finalPrice":null}}`, "Valid final price is required"},
		{"not json", `not json`, "Request body must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &recordingReservations{}
			p := NewWebhookProcessor(res, "")

			_, err := p.Process(context.Background(), []byte(tt.body), "")
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Process() error = %v, want *models.ValidationError", err)
			}
			if !strings.Contains(verr.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", verr.Error(), tt.want)
			}
			if len(res.upserts) != 0 {
				t.Error("invalid delivery was stored")
			}
		})
	}
}

func TestWebhook_ZeroPriceAccepted(t *testing.T) {
	body := `{"_id":"G","status":"inquiry","checkIn":"2025-03-01","checkOut":"2025-03-02","guest":{"fullName":"A B","email":"a@b.co"},"occupancy":{"numberOfGuests":1},"money":{"finalPrice":0}}`
	p := NewWebhookProcessor(&recordingReservations{}, "")
	if _, err := p.Process(context.Background(), []byte(body), ""); err != nil {
		t.Errorf("Process() error = %v, want zero price accepted", err)
	}
}

func TestWebhook_StoreErrorPropagates(t *testing.T) {
	storeErr := &models.PersistenceError{Operation: "upsert reservation", Err: errors.New("down")}
	p := NewWebhookProcessor(&recordingReservations{err: storeErr}, "")

	_, err := p.Process(context.Background(), []byte(validWebhook), "")
	var perr *models.PersistenceError
	if !errors.As(err, &perr) {
		t.Errorf("Process() error = %v, want *models.PersistenceError", err)
	}
}

func TestWebhook_RejectedMetric(t *testing.T) {
	before := testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues("rejected"))

	p := NewWebhookProcessor(&recordingReservations{}, "secret")
	_, _ = p.Process(context.Background(), []byte(validWebhook), "bad")

	if after := testutil.ToFloat64(metrics.WebhookEvents.WithLabelValues("rejected")); after != before+1 {
		t.Errorf("webhook_events_total{rejected} = %v, want %v", after, before+1)
	}
}
