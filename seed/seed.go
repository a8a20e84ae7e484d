package seed

import (
	"errors"
	"fmt"
	"log"
	"os"

	"referral-program-server/models"
	"referral-program-server/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnsureAdmin creates the bootstrap admin account if it does not exist.
// Lookup and create run in one transaction so two racing boots cannot both
// insert. Idempotent by construction — safe to call on every start.
func EnsureAdmin(db *gorm.DB) error {
	username := getEnv("ADMIN_USERNAME", "admin")
	password := getEnv("ADMIN_PASSWORD", "admin123")
	email := getEnv("ADMIN_EMAIL", "admin@elantar.com")

	return db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("username = ?", username).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
		referralCode, err := utils.GenerateReferralCode()
		if err != nil {
			return err
		}

		admin := models.User{
			Username:     username,
			Email:        email,
			PasswordHash: string(hash),
			IsAdmin:      true,
			ReferralCode: referralCode,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		log.Println("✅ Admin user created successfully!")
		return nil
	})
}
