package models

import (
	"time"

	"github.com/calderahq/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

// User represents the canonical identity entity. An unverified user always
// carries a pending code and its expiry; both columns are cleared the moment
// verification (or a successful password reset) completes.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	Name         string     `gorm:"column:name;not null"`
	Role         enums.Role `gorm:"column:role;type:text;not null;default:'customer'"`
	IsVerified   bool       `gorm:"column:is_verified;not null;default:false"`
	OTPCode      *string    `gorm:"column:otp_code"`
	OTPExpiresAt *time.Time `gorm:"column:otp_expires_at"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
