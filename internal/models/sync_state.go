// Villasync - Guesty Property Sync and Availability Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/villasync

package models

import "time"

// SyncStateID is the primary key of the singleton sync control row.
const SyncStateID = 1

// SyncState is the cluster-wide control row for property cache refreshes.
//
// Running acts as a lock and is only ever set through a conditional update
// that requires Running=false and an expired (or absent) BackoffUntil.
type SyncState struct {
	ID                 int        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	LastFullSyncAt     *time.Time `json:"lastFullSyncAt"`
	Running            bool       `gorm:"not null;default:false" json:"running"`
	BackoffUntil       *time.Time `json:"backoffUntil"`
	LastError          *string    `gorm:"type:text" json:"lastError"`
	RateLimitRemaining int        `gorm:"not null;default:1000" json:"rateLimitRemaining"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// TableName pins the table name used by earlier deployments.
func (SyncState) TableName() string {
	return "guesty_sync_state"
}

// Fresh reports whether the last completed sync is younger than ttl.
func (s *SyncState) Fresh(now time.Time, ttl time.Duration) bool {
	return s.LastFullSyncAt != nil && now.Sub(*s.LastFullSyncAt) < ttl
}

// InBackoff reports whether a failed sync is still blocking new attempts.
func (s *SyncState) InBackoff(now time.Time) bool {
	return s.BackoffUntil != nil && !s.BackoffUntil.Before(now)
}
