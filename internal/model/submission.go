package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus enum constants
const (
	StatusDraft       = "draft"
	StatusPending     = "pending"
	StatusVerified    = "verified"
	StatusRejected    = "rejected"
	StatusDiscrepancy = "discrepancy"
)

// Section index constants (1-based, matching the seven form steps)
const (
	SectionPersonalInfo      = 1
	SectionBankDetails       = 2
	SectionInvestmentDetails = 3
	SectionDividendHistory   = 4
	SectionDocuments         = 5
	SectionRemarks           = 6
	SectionDeclaration       = 7

	SectionCount = 7
)

// PersonalInfo is section 1 of the closure form.
type PersonalInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	DialCode string `json:"dialCode"` // e.g. "+971"
	Phone    string `json:"phone"`    // local number as typed by the investor
	Country  string `json:"country"`
}

// BankDetails is section 2.
type BankDetails struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountHolder string `json:"accountHolder"`
	IBAN          string `json:"iban"`
	Branch        string `json:"branch"`
}

// PaymentMethod is embedded in section 3. Cheque fields are only meaningful
// when PaidByCheque is set.
type PaymentMethod struct {
	PaidByCheque bool   `json:"paidByCheque"`
	ChequeNumber string `json:"chequeNumber"`
	ChequeDate   string `json:"chequeDate"`
}

// InvestmentDetails is section 3. Monetary and percentage fields are kept as
// strings exactly as entered; the validator parses them with decimal.
type InvestmentDetails struct {
	Amount                string        `json:"amount"`
	InvestmentDate        string        `json:"investmentDate"`
	Duration              string        `json:"duration"`
	AnnualDividendPercent string        `json:"annualDividendPercent"`
	DividendFrequency     string        `json:"dividendFrequency"`
	Status                string        `json:"status"`
	PaymentMethod         PaymentMethod `json:"paymentMethod"`
}

// DividendHistory is section 4. Pending fields are only meaningful when
// HasPending is set.
type DividendHistory struct {
	TotalReceived    string `json:"totalReceived"`
	LastDividendDate string `json:"lastDividendDate"`
	HasPending       bool   `json:"hasPending"`
	PendingAmount    string `json:"pendingAmount"`
	PendingSince     string `json:"pendingSince"`
}

// Documents is section 5. Values are opaque object-store references; the
// backend never inspects file content after upload.
type Documents struct {
	AgreementCopy    string `json:"agreementCopy"`
	PaymentProof     string `json:"paymentProof"`
	DividendReceipts string `json:"dividendReceipts"`
	OtherDocuments   string `json:"otherDocuments"`
}

// Remarks is section 6.
type Remarks struct {
	Notes string `json:"notes"`
}

// Declaration is section 7.
type Declaration struct {
	Confirmed  bool   `json:"confirmed"`
	Signature  string `json:"signature"`
	SignedDate string `json:"signedDate"`
}

// Submission is the central entity: one investment-closure form with seven
// sections, owned by an investor and moving through
// draft -> pending -> verified | rejected | discrepancy.
type Submission struct {
	ID                   uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvestorID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"investor_id"`
	Investor             *Investor  `gorm:"foreignKey:InvestorID" json:"investor,omitempty"`
	Status               string     `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	ReferenceNo          string     `gorm:"type:varchar(30);index" json:"reference_no"` // assigned at finalization
	CourtAgreementNumber string     `gorm:"type:varchar(100)" json:"court_agreement_number"`
	PhoneE164            string     `gorm:"type:varchar(25)" json:"phone_e164"` // derived at finalization

	PersonalInfo      PersonalInfo      `gorm:"serializer:json;type:jsonb" json:"personal_info"`
	BankDetails       BankDetails       `gorm:"serializer:json;type:jsonb" json:"bank_details"`
	InvestmentDetails InvestmentDetails `gorm:"serializer:json;type:jsonb" json:"investment_details"`
	DividendHistory   DividendHistory   `gorm:"serializer:json;type:jsonb" json:"dividend_history"`
	Documents         Documents         `gorm:"serializer:json;type:jsonb" json:"documents"`
	Remarks           Remarks           `gorm:"serializer:json;type:jsonb" json:"remarks"`
	Declaration       Declaration       `gorm:"serializer:json;type:jsonb" json:"declaration"`

	// Section indices that currently pass validation, recomputed on every
	// draft persist so clients can show "4/7" progress.
	CompletedSections []int `gorm:"serializer:json;type:jsonb" json:"completed_sections"`

	// Reviewer-owned fields, written only through the admin review path.
	ReviewNote string     `gorm:"type:text" json:"review_note"`
	ReviewedBy *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	Reviewer   *Investor  `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at"`

	SubmittedAt *time.Time `json:"submitted_at"` // set once, on draft -> pending
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Editable reports whether the owner may still change form content. Pending
// submissions are frozen for review; verified ones are archival.
func (s *Submission) Editable() bool {
	switch s.Status {
	case StatusDraft, StatusRejected, StatusDiscrepancy:
		return true
	}
	return false
}

// ConsentDocument is the one attachment a verified submission still accepts.
type ConsentDocument struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubmissionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"submission_id"`
	Submission   Submission `gorm:"foreignKey:SubmissionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	URL          string     `gorm:"type:text;not null" json:"url"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
