package models

import "time"

// ReferralClick is an append-only audit record of a single visit to a link.
// Rows are never mutated or deleted; the aggregate click count lives on
// ReferralLink so stat reads stay O(1).
type ReferralClick struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LinkID    uint      `gorm:"index;not null" json:"link_id"`
	IPAddress string    `gorm:"size:45;not null" json:"ip_address"`
	UserAgent string    `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
