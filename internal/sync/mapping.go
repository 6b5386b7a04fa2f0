// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package sync

import (
	"cmp"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/tomtom215/villasync/internal/guesty"
	"github.com/tomtom215/villasync/internal/models"
)

// DefaultBookingURLPattern is used when no pattern is configured.
const DefaultBookingURLPattern = "https://www.guesty.com/book/{id}"

// chain resolves a local field from ordered upstream sources. The first
// source yielding a value greater than the zero value wins (a positive number
// or a non-empty string); otherwise def is used.
type chain[T cmp.Ordered] struct {
	sources []func(*guesty.Listing) T
	def     T
}

func (c chain[T]) resolve(l *guesty.Listing) T {
	var zero T
	for _, source := range c.sources {
		if v := source(l); v > zero {
			return v
		}
	}
	return c.def
}

// Fallback chains, one per derived field.
var (
	descriptionChain = chain[string]{
		sources: []func(*guesty.Listing) string{
			func(l *guesty.Listing) string { return l.Description().Summary },
			func(l *guesty.Listing) string { return l.Description().Space },
		},
		def: "",
	}
	basePriceChain = chain[float64]{
		sources: []func(*guesty.Listing) float64{
			func(l *guesty.Listing) float64 { return l.Prices.BasePrice },
		},
		def: 199,
	}
	currencyChain = chain[string]{
		sources: []func(*guesty.Listing) string{
			func(l *guesty.Listing) string { return l.Prices.Currency },
		},
		def: "USD",
	}
	maxGuestsChain = chain[int]{
		sources: []func(*guesty.Listing) int{
			func(l *guesty.Listing) int { return l.Prices.GuestsIncludedInRegularFee },
			func(l *guesty.Listing) int { return derefInt(l.Accommodates) },
		},
		def: 6,
	}
	minNightsChain = chain[int]{
		sources: []func(*guesty.Listing) int{
			func(l *guesty.Listing) int { return l.Terms.MinNights },
		},
		def: 1,
	}
	maxNightsChain = chain[int]{
		sources: []func(*guesty.Listing) int{
			func(l *guesty.Listing) int { return l.Terms.MaxNights },
		},
		def: 30,
	}
)

// toProperty maps a listing to its local row. hash is the listing fingerprint.
func toProperty(l *guesty.Listing, hash, bookingURLPattern string, now time.Time) *models.Property {
	return &models.Property{
		ID:                 l.ID,
		Title:              l.Title,
		Nickname:           l.Nickname,
		Description:        descriptionChain.resolve(l),
		BasePrice:          basePriceChain.resolve(l),
		Currency:           currencyChain.resolve(l),
		MaxGuests:          maxGuestsChain.resolve(l),
		Accommodates:       l.Accommodates,
		MinNights:          minNightsChain.resolve(l),
		MaxNights:          maxNightsChain.resolve(l),
		Bedrooms:           l.Bedrooms,
		Bathrooms:          l.Bathrooms,
		Beds:               l.Beds,
		BookingURLTemplate: BookingURLTemplate(bookingURLPattern, l.ID),
		Timezone:           l.Timezone,
		Address:            jsonOrNil(l.Address),
		Amenities:          jsonOrNil(l.Amenities),
		Pictures:           jsonOrNil(l.Pictures),
		PublicDescription:  jsonOrNil(l.PublicDescription),
		Tags:               jsonOrNil(l.Tags),
		AvailabilityRules:  objectOrEmpty(l.Availability),
		PricingRules:       datatypes.JSON(`{}`),
		Fees:               objectOrEmpty(l.Fees),
		Policies:           objectOrEmpty(l.Policies),
		SourceRaw:          jsonOrNil(l.Raw),
		SourceUpdatedAt:    now,
		LastSyncedAt:       now,
		DataHash:           hash,
		IsActive:           true,
	}
}

// BookingURLTemplate substitutes id into pattern.
func BookingURLTemplate(pattern, id string) string {
	if pattern == "" {
		pattern = DefaultBookingURLPattern
	}
	return strings.ReplaceAll(pattern, "{id}", id)
}

func jsonOrNil(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return append(datatypes.JSON(nil), raw...)
}

func objectOrEmpty(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON(`{}`)
	}
	return jsonOrNil(raw)
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
