// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package sync

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/villasync/internal/guesty"
)

func decodeListing(t *testing.T, payload string) *guesty.Listing {
	t.Helper()
	var l guesty.Listing
	if err := json.Unmarshal([]byte(payload), &l); err != nil {
		t.Fatalf("unmarshal listing: %v", err)
	}
	return &l
}

func TestToProperty_FallbackChains(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		check   func(t *testing.T, l *guesty.Listing)
	}{
		{
			name:    "all defaults",
			payload: `{"_id":"L1","title":"Bare"}`,
			check: func(t *testing.T, l *guesty.Listing) {
				p := toProperty(l, "h", "", testNow)
				if p.Description != "" || p.BasePrice != 199 || p.Currency != "USD" ||
					p.MaxGuests != 6 || p.MinNights != 1 || p.MaxNights != 30 {
					t.Errorf("defaults = %+v", p)
				}
				if p.BookingURLTemplate != "https://www.guesty.com/book/L1" {
					t.Errorf("BookingURLTemplate = %q", p.BookingURLTemplate)
				}
				for name, v := range map[string][]byte{
					"availability": p.AvailabilityRules, "pricing": p.PricingRules,
					"fees": p.Fees, "policies": p.Policies,
				} {
					if string(v) != "{}" {
						t.Errorf("%s = %s, want {}", name, v)
					}
				}
				if p.Amenities != nil {
					t.Errorf("Amenities = %s, want nil", p.Amenities)
				}
			},
		},
		{
			name:    "description falls back to space",
			payload: `{"_id":"L1","publicDescription":{"summary":"","space":"Three bedrooms"}}`,
			check: func(t *testing.T, l *guesty.Listing) {
				if got := toProperty(l, "h", "", testNow).Description; got != "Three bedrooms" {
					t.Errorf("Description = %q", got)
				}
			},
		},
		{
			name:    "summary wins over space",
			payload: `{"_id":"L1","publicDescription":{"summary":"On the lake","space":"Three bedrooms"}}`,
			check: func(t *testing.T, l *guesty.Listing) {
				if got := toProperty(l, "h", "", testNow).Description; got != "On the lake" {
					t.Errorf("Description = %q", got)
				}
			},
		},
		{
			name:    "guests included wins over accommodates",
			payload: `{"_id":"L1","accommodates":10,"prices":{"guestsIncludedInRegularFee":8}}`,
			check: func(t *testing.T, l *guesty.Listing) {
				if got := toProperty(l, "h", "", testNow).MaxGuests; got != 8 {
					t.Errorf("MaxGuests = %d, want 8", got)
				}
			},
		},
		{
			name:    "accommodates when guests included is zero",
			payload: `{"_id":"L1","accommodates":10,"prices":{"guestsIncludedInRegularFee":0}}`,
			check: func(t *testing.T, l *guesty.Listing) {
				if got := toProperty(l, "h", "", testNow).MaxGuests; got != 10 {
					t.Errorf("MaxGuests = %d, want 10", got)
				}
			},
		},
		{
			name:    "upstream values",
			payload: `{"_id":"L1","prices":{"basePrice":320,"currency":"LKR"},"terms":{"minNights":2,"maxNights":14},"fees":{"cleaning":40}}`,
			check: func(t *testing.T, l *guesty.Listing) {
				p := toProperty(l, "h", "https://book.example.com/{id}?ref=site", testNow)
				if p.BasePrice != 320 || p.Currency != "LKR" || p.MinNights != 2 || p.MaxNights != 14 {
					t.Errorf("mapped = %+v", p)
				}
				if string(p.Fees) != `{"cleaning":40}` {
					t.Errorf("Fees = %s", p.Fees)
				}
				if p.BookingURLTemplate != "https://book.example.com/L1?ref=site" {
					t.Errorf("BookingURLTemplate = %q", p.BookingURLTemplate)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, decodeListing(t, tt.payload))
		})
	}
}

func TestToProperty_Bookkeeping(t *testing.T) {
	l := decodeListing(t, `{"_id":"L1","title":"Villa"}`)
	p := toProperty(l, "abc123", "", testNow)

	if !p.IsActive || p.DataHash != "abc123" {
		t.Errorf("IsActive = %v, DataHash = %q", p.IsActive, p.DataHash)
	}
	if !p.SourceUpdatedAt.Equal(testNow) || !p.LastSyncedAt.Equal(testNow) {
		t.Errorf("timestamps = %v / %v", p.SourceUpdatedAt, p.LastSyncedAt)
	}
	if len(p.SourceRaw) == 0 {
		t.Error("SourceRaw should hold the full payload")
	}
}
