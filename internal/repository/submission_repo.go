package repository

import (
	"context"
	"fmt"
	"time"

	"investorportal/internal/model"

	"gorm.io/gorm"
)

// SubmissionFilter narrows listing queries. Search matches full name, email,
// phone, court agreement number and reference number.
type SubmissionFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// SubmissionRepository defines the interface for data access of Submission entities
type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	GetByIDForOwner(ctx context.Context, id, investorID string) (*model.Submission, error)
	ListByOwner(ctx context.Context, investorID string, filter SubmissionFilter) ([]model.Submission, int64, error)
	List(ctx context.Context, filter SubmissionFilter) ([]model.Submission, int64, error)
	Update(ctx context.Context, sub *model.Submission) error
	Delete(ctx context.Context, id string) error
	NextReferenceNo(ctx context.Context) (string, error)
	CreateConsent(ctx context.Context, doc *model.ConsentDocument) error
	ListConsent(ctx context.Context, submissionID string) ([]model.ConsentDocument, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository returns a new instance of SubmissionRepository
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	return GetDB(ctx, r.db).Create(sub).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	var sub model.Submission
	if err := GetDB(ctx, r.db).Preload("Investor").First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) GetByIDForOwner(ctx context.Context, id, investorID string) (*model.Submission, error) {
	var sub model.Submission
	if err := GetDB(ctx, r.db).First(&sub, "id = ? AND investor_id = ?", id, investorID).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// applySearch adds the free-text filter. The section payloads are JSONB, so
// name/email/phone live behind ->> extraction.
func applySearch(q *gorm.DB, search string) *gorm.DB {
	if search == "" {
		return q
	}
	like := "%" + search + "%"
	return q.Where(
		`personal_info->>'fullName' ILIKE ? OR personal_info->>'email' ILIKE ? OR personal_info->>'phone' ILIKE ?
		 OR court_agreement_number ILIKE ? OR reference_no ILIKE ?`,
		like, like, like, like, like,
	)
}

func applyFilter(q *gorm.DB, filter SubmissionFilter) *gorm.DB {
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return applySearch(q, filter.Search)
}

func (r *submissionRepository) ListByOwner(ctx context.Context, investorID string, filter SubmissionFilter) ([]model.Submission, int64, error) {
	db := GetDB(ctx, r.db)

	base := applyFilter(db.Model(&model.Submission{}).Where("investor_id = ?", investorID), filter)
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []model.Submission
	offset := (filter.Page - 1) * filter.Limit
	query := applyFilter(db.Where("investor_id = ?", investorID), filter)
	if err := query.Order("updated_at DESC").Offset(offset).Limit(filter.Limit).Find(&subs).Error; err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]model.Submission, int64, error) {
	db := GetDB(ctx, r.db)

	var total int64
	if err := applyFilter(db.Model(&model.Submission{}), filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []model.Submission
	offset := (filter.Page - 1) * filter.Limit
	if err := applyFilter(db.Preload("Investor"), filter).
		Order("updated_at DESC").Offset(offset).Limit(filter.Limit).Find(&subs).Error; err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *submissionRepository) Update(ctx context.Context, sub *model.Submission) error {
	// Save replaces the whole row: last write wins at document granularity.
	return GetDB(ctx, r.db).Save(sub).Error
}

func (r *submissionRepository) Delete(ctx context.Context, id string) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Submission{}).Error
}

// NextReferenceNo issues a human-readable closure reference such as
// CLS-20260829-00042, unique per day.
func (r *submissionRepository) NextReferenceNo(ctx context.Context) (string, error) {
	db := GetDB(ctx, r.db)

	prefix := "CLS-" + time.Now().Format("20060102") + "-"

	// Advisory lock prevents concurrent duplicate reference numbers
	db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)

	var count int64
	if err := db.Model(&model.Submission{}).
		Where("reference_no LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func (r *submissionRepository) CreateConsent(ctx context.Context, doc *model.ConsentDocument) error {
	return GetDB(ctx, r.db).Create(doc).Error
}

func (r *submissionRepository) ListConsent(ctx context.Context, submissionID string) ([]model.ConsentDocument, error) {
	var docs []model.ConsentDocument
	if err := GetDB(ctx, r.db).
		Where("submission_id = ?", submissionID).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
