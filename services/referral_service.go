package services

import (
	"errors"
	"fmt"
	"log"

	"referral-program-server/models"
	"referral-program-server/utils"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrLinkNotFound covers both unknown and deactivated link codes. Callers
// must not be able to tell the two apart.
var ErrLinkNotFound = errors.New("invalid referral link")

// ValidationError maps to a 400 at the HTTP boundary.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var validate = validator.New()

const referralCodeAttempts = 5

type ReferralService struct {
	DB *gorm.DB
}

func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{DB: db}
}

type RegisterInput struct {
	Username         string `json:"username" validate:"required"`
	Email            string `json:"email" validate:"required"`
	Password         string `json:"password" validate:"required"`
	ReferralLinkCode string `json:"referralLinkCode"`
}

// Register creates a user and, when the submitted link code resolves to an
// active link, attributes the signup to the link owner. Attribution and the
// conversion counter bump commit in the same transaction as the user row.
// A missing, unknown, or inactive code is not an error — the user simply
// registers unattributed.
func (s *ReferralService) Register(input RegisterInput) (*models.User, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, &ValidationError{Message: "Missing required fields"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user models.User
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", input.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &ValidationError{Message: "Username already exists"}
		}
		if err := tx.Model(&models.User{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &ValidationError{Message: "Email already exists"}
		}

		var referredBy *uint
		if input.ReferralLinkCode != "" {
			var link models.ReferralLink
			err := tx.Where("link_code = ? AND is_active = ?", input.ReferralLinkCode, true).First(&link).Error
			switch {
			case err == nil:
				referredBy = &link.UserID
				if err := tx.Model(&models.ReferralLink{}).
					Where("id = ?", link.ID).
					Update("conversions", gorm.Expr("conversions + ?", 1)).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				// referral is optional: dead codes fall through silently
			default:
				return err
			}
		}

		referralCode, err := s.drawReferralCode(tx)
		if err != nil {
			return err
		}

		user = models.User{
			Username:     input.Username,
			Email:        input.Email,
			PasswordHash: string(hash),
			ReferralCode: referralCode,
			ReferredBy:   referredBy,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}

	if user.ReferredBy != nil {
		log.Printf("🔗 New user %s attributed to referrer %d", user.Username, *user.ReferredBy)
	}
	return &user, nil
}

// drawReferralCode generates a code that is free at the time of the check.
// The unique index on users.referral_code is the real guarantee; redraws
// just keep a collision from surfacing to the registrant.
func (s *ReferralService) drawReferralCode(tx *gorm.DB) (string, error) {
	for i := 0; i < referralCodeAttempts; i++ {
		code, err := utils.GenerateReferralCode()
		if err != nil {
			return "", err
		}
		var count int64
		if err := tx.Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
		log.Printf("⚠️ Referral code collision on attempt %d, redrawing", i+1)
	}
	return "", fmt.Errorf("exhausted %d referral code attempts", referralCodeAttempts)
}

// TrackClick records a visit to an active link: one ReferralClick row plus a
// counter bump, committed together. The increment is a single UPDATE against
// the stored value, so simultaneous clicks never overwrite each other.
// Returns the link owner's username for the landing page.
func (s *ReferralService) TrackClick(linkCode, ipAddress, userAgent string) (string, error) {
	var referrer string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var link models.ReferralLink
		if err := tx.Where("link_code = ? AND is_active = ?", linkCode, true).First(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLinkNotFound
			}
			return err
		}

		click := models.ReferralClick{
			LinkID:    link.ID,
			IPAddress: ipAddress,
			UserAgent: userAgent,
		}
		if err := tx.Create(&click).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ReferralLink{}).
			Where("id = ?", link.ID).
			Update("clicks", gorm.Expr("clicks + ?", 1)).Error; err != nil {
			return err
		}

		var owner models.User
		if err := tx.First(&owner, link.UserID).Error; err != nil {
			return err
		}
		referrer = owner.Username
		return nil
	})
	if err != nil {
		return "", err
	}
	return referrer, nil
}

// TrackConversion bumps the conversion counter of an active link. No event
// row is written — conversions are pure counters — and there is no
// idempotency key: calling this twice for the same external event counts
// twice. De-duplication is the caller's problem.
func (s *ReferralService) TrackConversion(linkCode string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var link models.ReferralLink
		if err := tx.Where("link_code = ? AND is_active = ?", linkCode, true).First(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLinkNotFound
			}
			return err
		}
		return tx.Model(&models.ReferralLink{}).
			Where("id = ?", link.ID).
			Update("conversions", gorm.Expr("conversions + ?", 1)).Error
	})
}

// CreateLink mints a new active tracking link for the user.
func (s *ReferralService) CreateLink(userID uint) (*models.ReferralLink, error) {
	link := models.ReferralLink{
		UserID:   userID,
		LinkCode: utils.GenerateLinkCode(),
		IsActive: true,
	}
	if err := s.DB.Create(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// ActiveLinks lists the user's links that have not been deactivated.
func (s *ReferralService) ActiveLinks(userID uint) ([]models.ReferralLink, error) {
	var links []models.ReferralLink
	err := s.DB.Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}
