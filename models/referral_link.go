package models

import "time"

// ReferralLink is a shareable tracking entry point owned by one user.
// Clicks and Conversions are denormalized counters and only ever increase.
// Links are never hard-deleted; clearing IsActive retires a link and every
// lookup must filter on it.
type ReferralLink struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	LinkCode    string    `gorm:"uniqueIndex;size:50;not null" json:"link_code"`
	Clicks      int64     `gorm:"default:0" json:"clicks"`
	Conversions int64     `gorm:"default:0" json:"conversions"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
