// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package models

import "time"

// Reservation mirrors a reservation that exists in Guesty, as delivered by
// the reservation webhook. GuestyBookingID is the natural key.
type Reservation struct {
	ID              string    `gorm:"primaryKey;type:uuid" json:"id"`
	GuestyBookingID string    `gorm:"type:text;uniqueIndex;not null" json:"guestyBookingId"`
	ListingID       string    `gorm:"type:text;index" json:"listingId,omitempty"`
	BookingStatus   string    `gorm:"type:varchar(64);not null" json:"bookingStatus"`
	CheckIn         time.Time `gorm:"type:date;not null" json:"checkIn"`
	CheckOut        time.Time `gorm:"type:date;not null" json:"checkOut"`
	GuestName       string    `gorm:"type:text;not null" json:"guestName"`
	GuestEmail      string    `gorm:"type:text;not null" json:"guestEmail"`
	GuestPhone      *string   `gorm:"type:text" json:"guestPhone"`
	GuestsCount     int       `gorm:"not null" json:"guestsCount"`
	TotalAmount     float64   `gorm:"not null" json:"totalAmount"`
	Currency        string    `gorm:"type:varchar(3)" json:"currency,omitempty"`
	SpecialRequests *string   `gorm:"type:text" json:"specialRequests"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TableName returns the reservations table name.
func (Reservation) TableName() string {
	return "guesty_reservations"
}
