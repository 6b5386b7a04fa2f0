// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package guesty

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Listing is one property as returned by GET /v1/listings.
//
// Only the fields the sync maps are decoded; the complete payload is kept in
// Raw so it can be stored verbatim.
type Listing struct {
	ID           string
	Title        string
	Nickname     string
	Accommodates *int
	Bedrooms     *float64
	Bathrooms    *float64
	Beds         *int
	Timezone     string
	Prices       Prices
	Terms        Terms

	PublicDescription json.RawMessage
	Address           json.RawMessage
	Amenities         json.RawMessage
	Pictures          json.RawMessage
	Tags              json.RawMessage
	Availability      json.RawMessage
	Fees              json.RawMessage
	Policies          json.RawMessage

	Raw json.RawMessage

	// DecodeErr is set when the record could not be decoded. ID is filled in
	// when the payload still carries one.
	DecodeErr error `json:"-"`
}

// Prices is the listing's pricing block.
type Prices struct {
	BasePrice                  float64 `json:"basePrice"`
	Currency                   string  `json:"currency"`
	GuestsIncludedInRegularFee int     `json:"guestsIncludedInRegularFee"`
}

// Terms is the listing's stay-length block.
type Terms struct {
	MinNights int `json:"minNights"`
	MaxNights int `json:"maxNights"`
}

// PublicDescription holds the text fields used for the local description.
type PublicDescription struct {
	Summary string `json:"summary"`
	Space   string `json:"space"`
}

type listingWire struct {
	UnderscoreID      string          `json:"_id"`
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Nickname          string          `json:"nickname"`
	Accommodates      *int            `json:"accommodates"`
	Bedrooms          *float64        `json:"bedrooms"`
	Bathrooms         *float64        `json:"bathrooms"`
	Beds              *int            `json:"beds"`
	Timezone          string          `json:"timezone"`
	Prices            *Prices         `json:"prices"`
	Terms             *Terms          `json:"terms"`
	PublicDescription json.RawMessage `json:"publicDescription"`
	Address           json.RawMessage `json:"address"`
	Amenities         json.RawMessage `json:"amenities"`
	Pictures          json.RawMessage `json:"pictures"`
	Tags              json.RawMessage `json:"tags"`
	Availability      json.RawMessage `json:"availability"`
	Fees              json.RawMessage `json:"fees"`
	Policies          json.RawMessage `json:"policies"`
}

// UnmarshalJSON decodes a listing and keeps the raw payload. The id is read
// from _id, falling back to id.
func (l *Listing) UnmarshalJSON(data []byte) error {
	var w listingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*l = Listing{
		ID:                w.UnderscoreID,
		Title:             w.Title,
		Nickname:          w.Nickname,
		Accommodates:      w.Accommodates,
		Bedrooms:          w.Bedrooms,
		Bathrooms:         w.Bathrooms,
		Beds:              w.Beds,
		Timezone:          w.Timezone,
		PublicDescription: nullToNil(w.PublicDescription),
		Address:           nullToNil(w.Address),
		Amenities:         nullToNil(w.Amenities),
		Pictures:          nullToNil(w.Pictures),
		Tags:              nullToNil(w.Tags),
		Availability:      nullToNil(w.Availability),
		Fees:              nullToNil(w.Fees),
		Policies:          nullToNil(w.Policies),
		Raw:               append(json.RawMessage(nil), data...),
	}
	if l.ID == "" {
		l.ID = w.ID
	}
	if w.Prices != nil {
		l.Prices = *w.Prices
	}
	if w.Terms != nil {
		l.Terms = *w.Terms
	}
	return nil
}

// Description decodes the publicDescription text fields. A missing or
// malformed block yields the zero value.
func (l *Listing) Description() PublicDescription {
	var pd PublicDescription
	if len(l.PublicDescription) > 0 {
		_ = json.Unmarshal(l.PublicDescription, &pd)
	}
	return pd
}

func nullToNil(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

// listingsPage is the envelope of GET /v1/listings. Records are decoded one
// at a time so a single bad listing does not fail the page.
type listingsPage struct {
	Results []json.RawMessage `json:"results"`
}

// decodeListing decodes one record of a listings page. On failure the
// returned Listing carries the error and whatever id could be recovered.
func decodeListing(raw json.RawMessage) Listing {
	var l Listing
	if err := json.Unmarshal(raw, &l); err != nil {
		var ids struct {
			UnderscoreID string `json:"_id"`
			ID           string `json:"id"`
		}
		_ = json.Unmarshal(raw, &ids)
		id := ids.UnderscoreID
		if id == "" {
			id = ids.ID
		}
		return Listing{ID: id, Raw: append(json.RawMessage(nil), raw...), DecodeErr: err}
	}
	return l
}

// CalendarDay is one night of a listing calendar.
type CalendarDay struct {
	Date      string  `json:"date"`
	Status    string  `json:"status"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	MinNights int     `json:"minNights,omitempty"`
}

// DayAvailable is the status value of a bookable night.
const DayAvailable = "available"

// calendarEnvelope accepts both {data: [...]} and {data: {days: [...]}}.
type calendarEnvelope struct {
	Data json.RawMessage `json:"data"`
}

func (e calendarEnvelope) days() ([]CalendarDay, error) {
	data := nullToNil(bytes.TrimSpace(e.Data))
	if data == nil {
		return nil, nil
	}

	var days []CalendarDay
	if data[0] == '[' {
		if err := json.Unmarshal(data, &days); err != nil {
			return nil, fmt.Errorf("decode calendar days: %w", err)
		}
		return days, nil
	}

	var wrapped struct {
		Days []CalendarDay `json:"days"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode calendar days: %w", err)
	}
	return wrapped.Days, nil
}
