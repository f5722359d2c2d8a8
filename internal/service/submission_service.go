package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"investorportal/internal/form"
	"investorportal/internal/model"
	"investorportal/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

// DraftRequest carries the full in-memory form state. Drafts are partial by
// nature, so no field is required at binding time.
type DraftRequest struct {
	ID                   string                  `json:"id"`
	CourtAgreementNumber string                  `json:"court_agreement_number"`
	PersonalInfo         model.PersonalInfo      `json:"personal_info"`
	BankDetails          model.BankDetails       `json:"bank_details"`
	InvestmentDetails    model.InvestmentDetails `json:"investment_details"`
	DividendHistory      model.DividendHistory   `json:"dividend_history"`
	Documents            model.Documents         `json:"documents"`
	Remarks              model.Remarks           `json:"remarks"`
	Declaration          model.Declaration       `json:"declaration"`
}

type SubmissionResponse struct {
	ID                   string                  `json:"id"`
	Status               string                  `json:"status"`
	ReferenceNo          string                  `json:"reference_no,omitempty"`
	CourtAgreementNumber string                  `json:"court_agreement_number,omitempty"`
	PhoneE164            string                  `json:"phone_e164,omitempty"`
	PersonalInfo         model.PersonalInfo      `json:"personal_info"`
	BankDetails          model.BankDetails       `json:"bank_details"`
	InvestmentDetails    model.InvestmentDetails `json:"investment_details"`
	DividendHistory      model.DividendHistory   `json:"dividend_history"`
	Documents            model.Documents         `json:"documents"`
	Remarks              model.Remarks           `json:"remarks"`
	Declaration          model.Declaration       `json:"declaration"`
	CompletedSections    []int                   `json:"completed_sections"`
	Progress             string                  `json:"progress"` // e.g. "4/7"
	ReviewNote           string                  `json:"review_note,omitempty"`
	SubmittedAt          *string                 `json:"submitted_at,omitempty"`
	CreatedAt            string                  `json:"created_at"`
	UpdatedAt            string                  `json:"updated_at"`
}

// SubmissionSummary is the listing row: enough for a status dashboard without
// shipping full section payloads.
type SubmissionSummary struct {
	ID                   string  `json:"id"`
	Status               string  `json:"status"`
	ReferenceNo          string  `json:"reference_no,omitempty"`
	CourtAgreementNumber string  `json:"court_agreement_number,omitempty"`
	FullName             string  `json:"full_name"`
	Amount               string  `json:"amount,omitempty"`
	Progress             string  `json:"progress"`
	SubmittedAt          *string `json:"submitted_at,omitempty"`
	UpdatedAt            string  `json:"updated_at"`
}

// EventBroadcaster pushes lifecycle events to connected websocket clients.
// Optional: a nil broadcaster disables events.
type EventBroadcaster interface {
	BroadcastEvent(event string, payload interface{})
}

// SubmissionService owns the submission lifecycle: draft editing and
// autosave persistence, section navigation gating, the guarded
// draft -> pending finalization, deletion rules and the admin review
// transition.
type SubmissionService interface {
	StartOrResumeDraft(ctx context.Context, investorID, existingID string) (*SubmissionResponse, error)
	AdvanceSection(req DraftRequest, current int) (int, form.FieldErrors, error)
	RetreatSection(current int) int
	PersistDraft(ctx context.Context, investorID string, req DraftRequest) (*SubmissionResponse, error)
	FinalizeSubmission(ctx context.Context, investorID, id string) (*SubmissionResponse, error)
	GetSubmission(ctx context.Context, investorID, id string) (*SubmissionResponse, error)
	ListSubmissions(ctx context.Context, investorID string, filter repository.SubmissionFilter) ([]SubmissionSummary, int64, error)
	ListAllSubmissions(ctx context.Context, filter repository.SubmissionFilter) ([]SubmissionSummary, int64, error)
	DeleteSubmission(ctx context.Context, investorID, id string) error
	ReviewSubmission(ctx context.Context, reviewerID, id, status, note string) (*SubmissionResponse, error)
	GetVerifiedSubmission(ctx context.Context, investorID, id string) (*model.Submission, error)
}

type submissionService struct {
	repo      repository.SubmissionRepository
	auditRepo repository.AuditRepository
	txm       repository.TransactionManager
	hub       EventBroadcaster
	now       func() time.Time
}

// NewSubmissionService returns a new instance of SubmissionService
func NewSubmissionService(
	repo repository.SubmissionRepository,
	auditRepo repository.AuditRepository,
	txm repository.TransactionManager,
	hub EventBroadcaster,
) SubmissionService {
	return &submissionService{
		repo:      repo,
		auditRepo: auditRepo,
		txm:       txm,
		hub:       hub,
		now:       time.Now,
	}
}

// --- Implementation ---

func (s *submissionService) StartOrResumeDraft(ctx context.Context, investorID, existingID string) (*SubmissionResponse, error) {
	ownerID, err := uuid.Parse(investorID)
	if err != nil {
		return nil, fmt.Errorf("invalid investor id: %w", err)
	}

	if existingID != "" {
		sub, err := s.repo.GetByIDForOwner(ctx, existingID, investorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: no editable submission %s", ErrNotFound, existingID)
			}
			return nil, err
		}
		if !sub.Editable() {
			// A submitted or verified record cannot be resumed as a draft.
			return nil, fmt.Errorf("%w: submission %s is %s", ErrNotFound, existingID, sub.Status)
		}
		return toSubmissionResponse(sub), nil
	}

	sub := &model.Submission{
		InvestorID: ownerID,
		Status:     model.StatusDraft,
	}
	sub.CompletedSections = form.CompletedSections(sub)

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.repo.Create(txCtx, sub); createErr != nil {
			return fmt.Errorf("failed to create draft: %w", createErr)
		}
		return s.audit(txCtx, &ownerID, model.ActionCreateSubmission, sub.ID.String(), "", nil)
	})
	if err != nil {
		return nil, err
	}

	return toSubmissionResponse(sub), nil
}

// AdvanceSection is a pure navigation gate: it validates the given section of
// the in-memory draft and returns the next index without touching storage.
func (s *submissionService) AdvanceSection(req DraftRequest, current int) (int, form.FieldErrors, error) {
	sub := &model.Submission{}
	applyDraft(sub, req)

	errs, err := form.Section(current, sub)
	if err != nil {
		return 0, nil, err
	}
	if len(errs) > 0 {
		return current, errs, nil
	}

	next := current + 1
	if next > model.SectionCount {
		next = model.SectionCount
	}
	return next, nil, nil
}

// RetreatSection always succeeds; going back never requires validation.
func (s *submissionService) RetreatSection(current int) int {
	if current <= 1 {
		return 1
	}
	return current - 1
}

func (s *submissionService) PersistDraft(ctx context.Context, investorID string, req DraftRequest) (*SubmissionResponse, error) {
	ownerID, err := uuid.Parse(investorID)
	if err != nil {
		return nil, fmt.Errorf("invalid investor id: %w", err)
	}

	if req.ID == "" {
		sub := &model.Submission{
			InvestorID: ownerID,
			Status:     model.StatusDraft,
		}
		applyDraft(sub, req)
		sub.CompletedSections = form.CompletedSections(sub)

		if err := s.repo.Create(ctx, sub); err != nil {
			return nil, fmt.Errorf("failed to create draft: %w", err)
		}
		return toSubmissionResponse(sub), nil
	}

	sub, err := s.repo.GetByIDForOwner(ctx, req.ID, investorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %s", ErrNotFound, req.ID)
		}
		return nil, err
	}
	if !sub.Editable() {
		return nil, fmt.Errorf("%w: submission is %s", ErrForbidden, sub.Status)
	}

	// Whole-document replace: the caller's state wins, nothing is merged.
	// Status is untouched so a rejected/discrepancy record stays in its
	// review state while the owner corrects it.
	applyDraft(sub, req)
	sub.CompletedSections = form.CompletedSections(sub)

	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to persist draft: %w", err)
	}
	return toSubmissionResponse(sub), nil
}

func (s *submissionService) FinalizeSubmission(ctx context.Context, investorID, id string) (*SubmissionResponse, error) {
	ownerID, err := uuid.Parse(investorID)
	if err != nil {
		return nil, fmt.Errorf("invalid investor id: %w", err)
	}

	sub, err := s.repo.GetByIDForOwner(ctx, id, investorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %s", ErrNotFound, id)
		}
		return nil, err
	}

	// Only a draft may finalize. Re-finalizing a pending/verified record is
	// refused here, not just hidden in the UI.
	if sub.Status != model.StatusDraft {
		return nil, fmt.Errorf("%w: submission is already %s", ErrForbidden, sub.Status)
	}

	if errs := form.All(sub); len(errs) > 0 {
		return nil, errs
	}

	now := s.now()
	sub.PhoneE164 = CanonicalPhone(sub.PersonalInfo.DialCode, sub.PersonalInfo.Phone)
	sub.Status = model.StatusPending
	sub.SubmittedAt = &now
	sub.CompletedSections = form.CompletedSections(sub)

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		refNo, refErr := s.repo.NextReferenceNo(txCtx)
		if refErr != nil {
			return fmt.Errorf("failed to assign reference number: %w", refErr)
		}
		sub.ReferenceNo = refNo

		if saveErr := s.repo.Update(txCtx, sub); saveErr != nil {
			return fmt.Errorf("failed to finalize submission: %w", saveErr)
		}

		return s.audit(txCtx, &ownerID, model.ActionSubmitSubmission, sub.ID.String(), refNo, map[string]interface{}{
			"reference_no": refNo,
			"amount":       sub.InvestmentDetails.Amount,
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("submission_submitted", map[string]interface{}{
		"id":           sub.ID.String(),
		"reference_no": sub.ReferenceNo,
		"status":       sub.Status,
	})

	return toSubmissionResponse(sub), nil
}

func (s *submissionService) GetSubmission(ctx context.Context, investorID, id string) (*SubmissionResponse, error) {
	sub, err := s.repo.GetByIDForOwner(ctx, id, investorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %s", ErrNotFound, id)
		}
		return nil, err
	}
	return toSubmissionResponse(sub), nil
}

func (s *submissionService) ListSubmissions(ctx context.Context, investorID string, filter repository.SubmissionFilter) ([]SubmissionSummary, int64, error) {
	normalizeFilter(&filter)
	subs, total, err := s.repo.ListByOwner(ctx, investorID, filter)
	if err != nil {
		return nil, 0, err
	}
	return toSummaries(subs), total, nil
}

func (s *submissionService) ListAllSubmissions(ctx context.Context, filter repository.SubmissionFilter) ([]SubmissionSummary, int64, error) {
	normalizeFilter(&filter)
	subs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return toSummaries(subs), total, nil
}

func (s *submissionService) DeleteSubmission(ctx context.Context, investorID, id string) error {
	ownerID, err := uuid.Parse(investorID)
	if err != nil {
		return fmt.Errorf("invalid investor id: %w", err)
	}

	sub, err := s.repo.GetByIDForOwner(ctx, id, investorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: submission %s", ErrNotFound, id)
		}
		return err
	}

	// Verified records are archival.
	if sub.Status == model.StatusVerified {
		return fmt.Errorf("%w: verified submissions cannot be deleted", ErrForbidden)
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.repo.Delete(txCtx, id); delErr != nil {
			return fmt.Errorf("failed to delete submission: %w", delErr)
		}
		return s.audit(txCtx, &ownerID, model.ActionDeleteSubmission, id, sub.ReferenceNo, nil)
	})
}

func (s *submissionService) ReviewSubmission(ctx context.Context, reviewerID, id, status, note string) (*SubmissionResponse, error) {
	revID, err := uuid.Parse(reviewerID)
	if err != nil {
		return nil, fmt.Errorf("invalid reviewer id: %w", err)
	}

	switch status {
	case model.StatusVerified, model.StatusRejected, model.StatusDiscrepancy:
	default:
		return nil, fmt.Errorf("invalid review status %q", status)
	}

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %s", ErrNotFound, id)
		}
		return nil, err
	}
	if sub.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: submission is %s, only pending submissions can be reviewed", ErrForbidden, sub.Status)
	}

	now := s.now()
	sub.Status = status
	sub.ReviewNote = note
	sub.ReviewedBy = &revID
	sub.ReviewedAt = &now

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.repo.Update(txCtx, sub); saveErr != nil {
			return fmt.Errorf("failed to update submission status: %w", saveErr)
		}
		return s.audit(txCtx, &revID, model.ActionReviewSubmission, sub.ID.String(), sub.ReferenceNo, map[string]interface{}{
			"status": status,
			"note":   note,
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("submission_reviewed", map[string]interface{}{
		"id":           sub.ID.String(),
		"reference_no": sub.ReferenceNo,
		"status":       status,
	})

	return toSubmissionResponse(sub), nil
}

// GetVerifiedSubmission returns the raw record for certificate rendering.
// Certificates exist only for verified submissions.
func (s *submissionService) GetVerifiedSubmission(ctx context.Context, investorID, id string) (*model.Submission, error) {
	sub, err := s.repo.GetByIDForOwner(ctx, id, investorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %s", ErrNotFound, id)
		}
		return nil, err
	}
	if sub.Status != model.StatusVerified {
		return nil, fmt.Errorf("%w: certificate requires a verified submission, got %s", ErrForbidden, sub.Status)
	}
	return sub, nil
}

// --- Helpers ---

func (s *submissionService) audit(ctx context.Context, actor *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload := ""
	if details != nil {
		raw, _ := json.Marshal(details)
		payload = string(raw)
	}
	entry := &model.AuditLog{
		InvestorID: actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    payload,
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *submissionService) broadcast(event string, payload interface{}) {
	if s.hub != nil {
		s.hub.BroadcastEvent(event, payload)
	}
}

func normalizeFilter(filter *repository.SubmissionFilter) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
}

// applyDraft replaces the editable form content with the request state.
func applyDraft(sub *model.Submission, req DraftRequest) {
	sub.CourtAgreementNumber = req.CourtAgreementNumber
	sub.PersonalInfo = req.PersonalInfo
	sub.BankDetails = req.BankDetails
	sub.InvestmentDetails = req.InvestmentDetails
	sub.DividendHistory = req.DividendHistory
	sub.Documents = req.Documents
	sub.Remarks = req.Remarks
	sub.Declaration = req.Declaration
}

// CanonicalPhone joins a dial code and a local number into one E.164-style
// string, e.g. ("+971", "0501234567") -> "+971501234567".
func CanonicalPhone(dialCode, local string) string {
	clean := func(v string) string {
		var b strings.Builder
		for _, r := range v {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		return b.String()
	}

	localDigits := strings.TrimLeft(clean(local), "0")
	codeDigits := clean(dialCode)
	if codeDigits == "" {
		if strings.HasPrefix(strings.TrimSpace(local), "+") {
			return "+" + localDigits
		}
		return localDigits
	}
	return "+" + codeDigits + localDigits
}

func progress(completed []int) string {
	return fmt.Sprintf("%d/%d", len(completed), model.SectionCount)
}

func toSubmissionResponse(sub *model.Submission) *SubmissionResponse {
	resp := &SubmissionResponse{
		ID:                   sub.ID.String(),
		Status:               sub.Status,
		ReferenceNo:          sub.ReferenceNo,
		CourtAgreementNumber: sub.CourtAgreementNumber,
		PhoneE164:            sub.PhoneE164,
		PersonalInfo:         sub.PersonalInfo,
		BankDetails:          sub.BankDetails,
		InvestmentDetails:    sub.InvestmentDetails,
		DividendHistory:      sub.DividendHistory,
		Documents:            sub.Documents,
		Remarks:              sub.Remarks,
		Declaration:          sub.Declaration,
		CompletedSections:    sub.CompletedSections,
		Progress:             progress(sub.CompletedSections),
		ReviewNote:           sub.ReviewNote,
		CreatedAt:            sub.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            sub.UpdatedAt.Format(time.RFC3339),
	}
	if sub.SubmittedAt != nil {
		v := sub.SubmittedAt.Format(time.RFC3339)
		resp.SubmittedAt = &v
	}
	return resp
}

func toSummaries(subs []model.Submission) []SubmissionSummary {
	result := make([]SubmissionSummary, 0, len(subs))
	for _, sub := range subs {
		row := SubmissionSummary{
			ID:                   sub.ID.String(),
			Status:               sub.Status,
			ReferenceNo:          sub.ReferenceNo,
			CourtAgreementNumber: sub.CourtAgreementNumber,
			FullName:             sub.PersonalInfo.FullName,
			Amount:               sub.InvestmentDetails.Amount,
			Progress:             progress(sub.CompletedSections),
			UpdatedAt:            sub.UpdatedAt.Format(time.RFC3339),
		}
		if sub.SubmittedAt != nil {
			v := sub.SubmittedAt.Format(time.RFC3339)
			row.SubmittedAt = &v
		}
		result = append(result, row)
	}
	return result
}
