// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package models

import (
	"errors"
	"time"
)

// BookingStatus is the lifecycle state of a BookingRequest.
type BookingStatus string

// Booking request statuses. Transitions only ever leave BookingPending.
const (
	BookingPending      BookingStatus = "pending"
	BookingSentToGuesty BookingStatus = "sent_to_guesty"
	BookingGuestyFailed BookingStatus = "guesty_failed"
)

// ErrInvalidTransition is returned when a booking status change is attempted
// from a status other than pending.
var ErrInvalidTransition = errors.New("booking status transition not allowed")

// BookingRequest is a guest booking request captured by the website.
type BookingRequest struct {
	ID              string        `gorm:"primaryKey;type:uuid" json:"id"`
	PropertyID      string        `gorm:"type:text;index" json:"propertyId,omitempty"`
	GuestName       string        `gorm:"type:text;not null" json:"guestName"`
	GuestEmail      string        `gorm:"type:text;not null" json:"guestEmail"`
	GuestPhone      *string       `gorm:"type:text" json:"guestPhone"`
	CheckIn         time.Time     `gorm:"type:date;not null" json:"checkIn"`
	CheckOut        time.Time     `gorm:"type:date;not null" json:"checkOut"`
	GuestsCount     int           `gorm:"not null" json:"guestsCount"`
	Nights          int           `gorm:"not null" json:"nights"`
	TotalAmount     *float64      `json:"totalAmount"`
	Currency        string        `gorm:"type:varchar(3)" json:"currency,omitempty"`
	SpecialRequests *string       `gorm:"type:text" json:"specialRequests"`
	Status          BookingStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	GuestyBookingID *string       `gorm:"type:text" json:"guestyBookingId"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// TableName pins the table name used by earlier deployments.
func (BookingRequest) TableName() string {
	return "booking_requests"
}
