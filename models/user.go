package models

import "time"

// User is an account on the referral platform. ReferredBy points at the
// user whose link the account was registered through; it is set once at
// creation and never updated afterwards.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:80;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:120;not null" json:"email"`
	PasswordHash string    `gorm:"size:120;not null" json:"-"`
	IsAdmin      bool      `gorm:"default:false" json:"is_admin"`
	ReferralCode string    `gorm:"uniqueIndex;size:20;not null" json:"referral_code"`
	ReferredBy   *uint     `gorm:"index" json:"referred_by,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	ReferralLinks []ReferralLink `gorm:"foreignKey:UserID" json:"-"`
}
