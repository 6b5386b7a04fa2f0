// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Property is the local cache of one Guesty listing.
//
// DataHash is the change fingerprint of the source fields. A row is only
// rewritten when a freshly computed fingerprint differs from DataHash, so the
// hash always describes the stored SourceRaw. Rows are never deleted.
type Property struct {
	ID                 string         `gorm:"primaryKey;type:text" json:"id"`
	Title              string         `gorm:"type:text;not null;default:''" json:"title"`
	Nickname           string         `gorm:"type:text" json:"nickname"`
	Description        string         `gorm:"type:text" json:"description"`
	BasePrice          float64        `gorm:"not null" json:"basePrice"`
	Currency           string         `gorm:"type:varchar(3);not null" json:"currency"`
	MaxGuests          int            `gorm:"not null" json:"maxGuests"`
	Accommodates       *int           `json:"accommodates,omitempty"`
	MinNights          int            `gorm:"not null" json:"minNights"`
	MaxNights          int            `gorm:"not null" json:"maxNights"`
	Bedrooms           *float64       `json:"bedrooms,omitempty"`
	Bathrooms          *float64       `json:"bathrooms,omitempty"`
	Beds               *int           `json:"beds,omitempty"`
	BookingURLTemplate string         `gorm:"type:text" json:"bookingUrlTemplate"`
	Timezone           string         `gorm:"type:text" json:"timezone,omitempty"`
	Address            datatypes.JSON `gorm:"type:jsonb" json:"address,omitempty"`
	Amenities          datatypes.JSON `gorm:"type:jsonb" json:"amenities,omitempty"`
	Pictures           datatypes.JSON `gorm:"type:jsonb" json:"pictures,omitempty"`
	PublicDescription  datatypes.JSON `gorm:"type:jsonb" json:"publicDescription,omitempty"`
	Tags               datatypes.JSON `gorm:"type:jsonb" json:"tags,omitempty"`
	AvailabilityRules  datatypes.JSON `gorm:"type:jsonb" json:"availabilityRules,omitempty"`
	PricingRules       datatypes.JSON `gorm:"type:jsonb" json:"pricingRules,omitempty"`
	Fees               datatypes.JSON `gorm:"type:jsonb" json:"fees,omitempty"`
	Policies           datatypes.JSON `gorm:"type:jsonb" json:"policies,omitempty"`
	SourceRaw          datatypes.JSON `gorm:"type:jsonb" json:"-"`
	SourceUpdatedAt    time.Time      `json:"sourceUpdatedAt"`
	LastSyncedAt       time.Time      `gorm:"index" json:"lastSyncedAt"`
	DataHash           string         `gorm:"type:varchar(64);index" json:"-"`
	IsActive           bool           `gorm:"not null;index" json:"isActive"`
}

// TableName pins the table name used by earlier deployments.
func (Property) TableName() string {
	return "guesty_properties"
}

// Clone returns a deep copy, so that callers cannot alias a store's JSON buffers.
func (p *Property) Clone() *Property {
	c := *p
	c.Accommodates = cloneInt(p.Accommodates)
	c.Beds = cloneInt(p.Beds)
	c.Bedrooms = cloneFloat(p.Bedrooms)
	c.Bathrooms = cloneFloat(p.Bathrooms)
	c.Address = cloneJSON(p.Address)
	c.Amenities = cloneJSON(p.Amenities)
	c.Pictures = cloneJSON(p.Pictures)
	c.PublicDescription = cloneJSON(p.PublicDescription)
	c.Tags = cloneJSON(p.Tags)
	c.AvailabilityRules = cloneJSON(p.AvailabilityRules)
	c.PricingRules = cloneJSON(p.PricingRules)
	c.Fees = cloneJSON(p.Fees)
	c.Policies = cloneJSON(p.Policies)
	c.SourceRaw = cloneJSON(p.SourceRaw)
	return &c
}

func cloneJSON(j datatypes.JSON) datatypes.JSON {
	if j == nil {
		return nil
	}
	return append(datatypes.JSON(nil), j...)
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
