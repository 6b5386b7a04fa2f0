// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

// Package fingerprint computes the change fingerprint of a Guesty listing.
//
// The fingerprint covers a fixed subset of the listing: the fields shown to
// guests and used for pricing. Upstream edits outside that subset (tags,
// fees, address) do not change it, so they only reach the local cache when
// one of the covered fields also changes.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/goccy/go-json"

	"github.com/tomtom215/villasync/internal/guesty"
)

// Length is the number of hex characters in a fingerprint.
const Length = 32

// relevantFields fixes the serialization order of the hashed subset.
type relevantFields struct {
	Title             string          `json:"title"`
	Nickname          string          `json:"nickname"`
	BasePrice         float64         `json:"basePrice"`
	Currency          string          `json:"currency"`
	MaxGuests         *int            `json:"maxGuests"`
	MinNights         int             `json:"minNights"`
	MaxNights         int             `json:"maxNights"`
	Bedrooms          *float64        `json:"bedrooms"`
	Bathrooms         *float64        `json:"bathrooms"`
	PublicDescription json.RawMessage `json:"publicDescription"`
	Amenities         json.RawMessage `json:"amenities"`
	Pictures          json.RawMessage `json:"pictures"`
}

// Compute returns the fingerprint of l. Equal relevant content always yields
// an equal fingerprint, whatever the key order of the upstream sub-documents.
func Compute(l *guesty.Listing) (string, error) {
	fields := relevantFields{
		Title:             l.Title,
		Nickname:          l.Nickname,
		BasePrice:         l.Prices.BasePrice,
		Currency:          l.Prices.Currency,
		MaxGuests:         maxGuests(l),
		MinNights:         l.Terms.MinNights,
		MaxNights:         l.Terms.MaxNights,
		Bedrooms:          l.Bedrooms,
		Bathrooms:         l.Bathrooms,
		PublicDescription: canonical(l.PublicDescription),
		Amenities:         canonical(l.Amenities),
		Pictures:          canonical(l.Pictures),
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:Length], nil
}

// maxGuests mirrors the mapping rule: guests included in the regular fee,
// falling back to accommodates.
func maxGuests(l *guesty.Listing) *int {
	if n := l.Prices.GuestsIncludedInRegularFee; n > 0 {
		return &n
	}
	return l.Accommodates
}

// canonical re-encodes a sub-document with sorted object keys and no
// insignificant whitespace. Undecodable input is hashed as compacted bytes.
func canonical(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		var buf bytes.Buffer
		if json.Compact(&buf, trimmed) != nil {
			return nil
		}
		return buf.Bytes()
	}

	out, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return out
}
