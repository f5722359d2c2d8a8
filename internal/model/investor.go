package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enum constants
const (
	RoleInvestor = "investor"
	RoleAdmin    = "admin"
)

// Investor represents an authenticated portal user. There is no password:
// identity is established by phone OTP, so the phone number is the natural key.
type Investor struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Phone     string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"` // E.164
	FullName  string         `gorm:"type:varchar(255)" json:"full_name"`
	Email     string         `gorm:"type:varchar(255)" json:"email"`
	Role      string         `gorm:"type:varchar(20);not null;default:'investor'" json:"role"` // investor, admin
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// RefreshToken stores long-lived tokens allowing investors to request new access tokens
type RefreshToken struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvestorID uuid.UUID `gorm:"type:uuid;not null;index" json:"investor_id"`
	Investor   Investor  `gorm:"foreignKey:InvestorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt  time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
