// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package fingerprint

import (
	"regexp"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/villasync/internal/guesty"
)

func mustListing(t *testing.T, payload string) *guesty.Listing {
	t.Helper()
	var l guesty.Listing
	if err := json.Unmarshal([]byte(payload), &l); err != nil {
		t.Fatalf("unmarshal listing: %v", err)
	}
	return &l
}

func mustCompute(t *testing.T, l *guesty.Listing) string {
	t.Helper()
	fp, err := Compute(l)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	return fp
}

const baseListing = `{
	"_id": "L1",
	"title": "Lake Villa",
	"nickname": "LV",
	"accommodates": 8,
	"bedrooms": 3,
	"bathrooms": 2,
	"prices": {"basePrice": 320, "currency": "USD"},
	"terms": {"minNights": 2, "maxNights": 14},
	"publicDescription": {"summary": "On the lake", "space": "Big"},
	"amenities": ["pool", "wifi"],
	"pictures": [{"original": "https://img/1.jpg", "thumbnail": "https://img/1t.jpg"}],
	"tags": ["lake"]
}`

func TestCompute_Format(t *testing.T) {
	fp := mustCompute(t, mustListing(t, baseListing))

	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(fp) {
		t.Errorf("Compute() = %q, want 32 lowercase hex chars", fp)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a := mustCompute(t, mustListing(t, baseListing))
	b := mustCompute(t, mustListing(t, baseListing))
	if a != b {
		t.Errorf("fingerprints differ for identical input: %s vs %s", a, b)
	}
}

func TestCompute_KeyOrderIndependent(t *testing.T) {
	reordered := `{
		"pictures": [{"thumbnail": "https://img/1t.jpg", "original": "https://img/1.jpg"}],
		"publicDescription": {"space": "Big", "summary": "On the lake"},
		"amenities": ["pool", "wifi"],
		"terms": {"maxNights": 14, "minNights": 2},
		"prices": {"currency": "USD", "basePrice": 320},
		"bathrooms": 2,
		"bedrooms": 3,
		"accommodates": 8,
		"nickname": "LV",
		"title": "Lake Villa",
		"_id": "L1"
	}`

	if mustCompute(t, mustListing(t, baseListing)) != mustCompute(t, mustListing(t, reordered)) {
		t.Error("key order should not change the fingerprint")
	}
}

func TestCompute_Sensitivity(t *testing.T) {
	base := mustCompute(t, mustListing(t, baseListing))

	tests := []struct {
		name    string
		mutate  func(*guesty.Listing)
		changes bool
	}{
		{"title", func(l *guesty.Listing) { l.Title = "Hill Villa" }, true},
		{"base price", func(l *guesty.Listing) { l.Prices.BasePrice = 330 }, true},
		{"currency", func(l *guesty.Listing) { l.Prices.Currency = "EUR" }, true},
		{"min nights", func(l *guesty.Listing) { l.Terms.MinNights = 3 }, true},
		{"amenities", func(l *guesty.Listing) { l.Amenities = json.RawMessage(`["pool"]`) }, true},
		{"guests included overrides accommodates", func(l *guesty.Listing) { l.Prices.GuestsIncludedInRegularFee = 4 }, true},
		{"tags are not covered", func(l *guesty.Listing) { l.Tags = json.RawMessage(`["sea"]`) }, false},
		{"fees are not covered", func(l *guesty.Listing) { l.Fees = json.RawMessage(`{"cleaning": 50}`) }, false},
		{"whitespace in sub-document", func(l *guesty.Listing) { l.Amenities = json.RawMessage(" [ \"pool\",\n\"wifi\" ] ") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := mustListing(t, baseListing)
			tt.mutate(l)
			got := mustCompute(t, l)
			if changed := got != base; changed != tt.changes {
				t.Errorf("fingerprint changed = %v, want %v", changed, tt.changes)
			}
		})
	}
}

func TestCompute_MaxGuestsRule(t *testing.T) {
	// Same effective max guests through either source yields the same fingerprint.
	viaFee := mustListing(t, `{"_id":"L1","title":"A","prices":{"guestsIncludedInRegularFee":6}}`)
	viaAccommodates := mustListing(t, `{"_id":"L1","title":"A","accommodates":6}`)

	if mustCompute(t, viaFee) != mustCompute(t, viaAccommodates) {
		t.Error("max guests should resolve to the same value")
	}
}
