// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/villasync/internal/guesty"
	"github.com/tomtom215/villasync/internal/models"
	"github.com/tomtom215/villasync/internal/validation"
)

// Widget defaults for properties synced with incomplete data.
const (
	defaultBasePrice = 199
	defaultCurrency  = "USD"
	defaultMaxGuests = 6
	defaultMinNights = 1
	defaultMaxNights = 30

	// maxCalendarDays bounds the calendar proxy range.
	maxCalendarDays = 366
)

// PropertySummary is the catalog view of a property used by the booking
// widget.
type PropertySummary struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Nickname           string          `json:"nickname"`
	Description        string          `json:"description"`
	BasePrice          float64         `json:"basePrice"`
	Currency           string          `json:"currency"`
	MaxGuests          int             `json:"maxGuests"`
	MinNights          int             `json:"minNights"`
	MaxNights          int             `json:"maxNights"`
	BookingURLTemplate string          `json:"bookingUrlTemplate"`
	HeroImage          *string         `json:"heroImage"`
	Amenities          json.RawMessage `json:"amenities"`
	LastSynced         time.Time       `json:"lastSynced"`
}

// picture is the subset of a Guesty picture the catalog reads.
type picture struct {
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail"`
}

func summarize(p *models.Property) PropertySummary {
	s := PropertySummary{
		ID:                 p.ID,
		Title:              p.Title,
		Nickname:           p.Nickname,
		Description:        p.Description,
		BasePrice:          p.BasePrice,
		Currency:           p.Currency,
		MaxGuests:          p.MaxGuests,
		MinNights:          p.MinNights,
		MaxNights:          p.MaxNights,
		BookingURLTemplate: p.BookingURLTemplate,
		HeroImage:          heroImage(p.Pictures),
		Amenities:          json.RawMessage(`[]`),
		LastSynced:         p.LastSyncedAt,
	}
	if s.BasePrice == 0 {
		s.BasePrice = defaultBasePrice
	}
	if s.Currency == "" {
		s.Currency = defaultCurrency
	}
	if s.MaxGuests == 0 {
		s.MaxGuests = defaultMaxGuests
	}
	if s.MinNights == 0 {
		s.MinNights = defaultMinNights
	}
	if s.MaxNights == 0 {
		s.MaxNights = defaultMaxNights
	}
	if isJSONArray(p.Amenities) {
		s.Amenities = json.RawMessage(append([]byte(nil), p.Amenities...))
	}
	return s
}

// heroImage is the first picture's original URL, falling back to its
// thumbnail.
func heroImage(raw []byte) *string {
	var pictures []picture
	if len(raw) == 0 || json.Unmarshal(raw, &pictures) != nil || len(pictures) == 0 {
		return nil
	}
	url := pictures[0].Original
	if url == "" {
		url = pictures[0].Thumbnail
	}
	if url == "" {
		return nil
	}
	return &url
}

func isJSONArray(raw []byte) bool {
	var items []json.RawMessage
	return len(raw) > 0 && json.Unmarshal(raw, &items) == nil && items != nil
}

// ListProperties returns the active catalog ordered by title.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	properties, err := h.deps.Catalog.ListActiveProperties(r.Context())
	if err != nil {
		rw.Fail(err)
		return
	}

	summaries := make([]PropertySummary, 0, len(properties))
	for _, p := range properties {
		summaries = append(summaries, summarize(p))
	}

	count := len(summaries)
	meta := &APIMeta{Count: &count}
	if count == 0 {
		meta.Message = "No properties available - sync may be needed"
	}
	rw.SuccessWithMeta(summaries, meta)
}

// GetProperty returns the cached details of one active property.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	p, err := h.deps.Catalog.GetActiveProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		rw.Fail(err)
		return
	}

	rw.Success(p)
}

// CalendarResponse is the body of the calendar proxy.
type CalendarResponse struct {
	ListingID string               `json:"listingId"`
	StartDate string               `json:"startDate"`
	EndDate   string               `json:"endDate"`
	Days      []guesty.CalendarDay `json:"days"`
}

// PropertyCalendar proxies the live Guesty calendar for one listing.
//
//	GET /api/v1/properties/{id}/calendar?start_date=2025-03-01&end_date=2025-03-31
func (h *Handler) PropertyCalendar(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id := chi.URLParam(r, "id")
	startRaw := r.URL.Query().Get("start_date")
	endRaw := r.URL.Query().Get("end_date")

	verr := &models.ValidationError{}
	start, startErr := validation.ParseDate(startRaw)
	if startErr != nil {
		verr.Add("start_date", "start_date is required (YYYY-MM-DD)")
	}
	end, endErr := validation.ParseDate(endRaw)
	if endErr != nil {
		verr.Add("end_date", "end_date is required (YYYY-MM-DD)")
	}
	if startErr == nil && endErr == nil {
		switch span := validation.Nights(start, end); {
		case span < 0:
			verr.Add("end_date", "end_date must not be before start_date")
		case span > maxCalendarDays:
			verr.Add("end_date", fmt.Sprintf("Date range cannot exceed %d days", maxCalendarDays))
		}
	}
	if err := verr.OrNil(); err != nil {
		rw.Fail(err)
		return
	}

	token, err := h.deps.Tokens.Token(r.Context())
	if err != nil {
		rw.Fail(err)
		return
	}

	days, err := h.deps.Calendar.GetCalendar(r.Context(), token, id, start, end)
	fresh, renewed, tokenErr := guesty.RenewRejectedToken(r.Context(), h.deps.Tokens, err)
	if tokenErr != nil {
		rw.Fail(tokenErr)
		return
	}
	if renewed {
		days, err = h.deps.Calendar.GetCalendar(r.Context(), fresh, id, start, end)
	}
	if err != nil {
		rw.Fail(err)
		return
	}
	if days == nil {
		days = []guesty.CalendarDay{}
	}

	rw.Success(CalendarResponse{
		ListingID: id,
		StartDate: startRaw,
		EndDate:   endRaw,
		Days:      days,
	})
}
