package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateSubmission = "CREATE_SUBMISSION"
	ActionSubmitSubmission = "SUBMIT_SUBMISSION"
	ActionDeleteSubmission = "DELETE_SUBMISSION"
	ActionUploadDocument   = "UPLOAD_DOCUMENT"
	ActionAttachConsent    = "ATTACH_CONSENT"
	ActionReviewSubmission = "REVIEW_SUBMISSION"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvestorID *uuid.UUID `gorm:"type:uuid;index" json:"investor_id"` // Nullable gracefully if automated
	Investor   *Investor  `gorm:"foreignKey:InvestorID" json:"investor"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
