package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"investorportal/internal/model"
	"investorportal/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxUploadSize is the per-file ceiling, enforced before any processing.
const MaxUploadSize = 10 << 20 // 10 MiB

// Document slot names, fixed by the form.
const (
	SlotAgreementCopy    = "agreementCopy"
	SlotPaymentProof     = "paymentProof"
	SlotDividendReceipts = "dividendReceipts"
	SlotOtherDocuments   = "otherDocuments"
)

// allowedUploadTypes maps permitted extensions to their content types.
var allowedUploadTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ObjectPutter is the object-store surface this service needs (satisfied by
// storage.ObjectStore). Put returns the public reference recorded on the
// submission; the service never reads stored content back.
type ObjectPutter interface {
	Put(ctx context.Context, keyHint string, data []byte, contentType string) (string, error)
}

type ConsentResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

// DocumentService attaches uploaded files to submissions: one file per slot,
// overwrite replaces the reference. Policy (type allow-list, size ceiling) is
// enforced here, before the store is contacted.
type DocumentService interface {
	UploadDocument(ctx context.Context, investorID, submissionID, slot, fileName string, data []byte) (*SubmissionResponse, error)
	AttachConsent(ctx context.Context, investorID, submissionID, fileName string, data []byte) (*ConsentResponse, error)
	ListConsent(ctx context.Context, investorID, submissionID string) ([]ConsentResponse, error)
}

type documentService struct {
	repo      repository.SubmissionRepository
	auditRepo repository.AuditRepository
	txm       repository.TransactionManager
	store     ObjectPutter
}

// NewDocumentService returns a new instance of DocumentService
func NewDocumentService(
	repo repository.SubmissionRepository,
	auditRepo repository.AuditRepository,
	txm repository.TransactionManager,
	store ObjectPutter,
) DocumentService {
	return &documentService{repo: repo, auditRepo: auditRepo, txm: txm, store: store}
}

func (s *documentService) UploadDocument(ctx context.Context, investorID, submissionID, slot, fileName string, data []byte) (*SubmissionResponse, error) {
	ownerID, err := uuid.Parse(investorID)
	if err != nil {
		return nil, fmt.Errorf("invalid investor id: %w", err)
	}

	setter, ok := slotSetter(slot)
	if !ok {
		return nil, fmt.Errorf("%w: unknown document slot %q", ErrUploadRejected, slot)
	}

	contentType, err := checkUploadPolicy(fileName, data)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.GetByIDForOwner(ctx, submissionID, investorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
		}
		return nil, err
	}
	if !sub.Editable() {
		return nil, fmt.Errorf("%w: submission is %s", ErrForbidden, sub.Status)
	}

	url, err := s.store.Put(ctx, fileName, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	setter(&sub.Documents, url)

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.repo.Update(txCtx, sub); saveErr != nil {
			return fmt.Errorf("failed to record document reference: %w", saveErr)
		}
		entry := &model.AuditLog{
			InvestorID: &ownerID,
			Action:     model.ActionUploadDocument,
			EntityID:   sub.ID.String(),
			EntityName: slot,
			Details:    fmt.Sprintf(`{"slot":%q,"file":%q}`, slot, fileName),
		}
		return s.auditRepo.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	return toSubmissionResponse(sub), nil
}

func (s *documentService) AttachConsent(ctx context.Context, investorID, submissionID, fileName string, data []byte) (*ConsentResponse, error) {
	ownerID, err := uuid.Parse(investorID)
	if err != nil {
		return nil, fmt.Errorf("invalid investor id: %w", err)
	}

	contentType, err := checkUploadPolicy(fileName, data)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.GetByIDForOwner(ctx, submissionID, investorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
		}
		return nil, err
	}
	// Consent documents are the one attachment a verified record accepts.
	if sub.Status != model.StatusVerified {
		return nil, fmt.Errorf("%w: consent requires a verified submission, got %s", ErrForbidden, sub.Status)
	}

	url, err := s.store.Put(ctx, fileName, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store consent document: %w", err)
	}

	doc := &model.ConsentDocument{
		SubmissionID: sub.ID,
		URL:          url,
	}
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.repo.CreateConsent(txCtx, doc); createErr != nil {
			return fmt.Errorf("failed to record consent document: %w", createErr)
		}
		entry := &model.AuditLog{
			InvestorID: &ownerID,
			Action:     model.ActionAttachConsent,
			EntityID:   sub.ID.String(),
			EntityName: sub.ReferenceNo,
			Details:    fmt.Sprintf(`{"file":%q}`, fileName),
		}
		return s.auditRepo.Log(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	return &ConsentResponse{
		ID:        doc.ID.String(),
		URL:       doc.URL,
		CreatedAt: doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

func (s *documentService) ListConsent(ctx context.Context, investorID, submissionID string) ([]ConsentResponse, error) {
	if _, err := s.repo.GetByIDForOwner(ctx, submissionID, investorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: submission %s", ErrNotFound, submissionID)
		}
		return nil, err
	}

	docs, err := s.repo.ListConsent(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	result := make([]ConsentResponse, 0, len(docs))
	for _, d := range docs {
		result = append(result, ConsentResponse{
			ID:        d.ID.String(),
			URL:       d.URL,
			CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return result, nil
}

// --- Helpers ---

// checkUploadPolicy validates extension and size before anything touches the
// object store, returning the content type to store the object under.
func checkUploadPolicy(fileName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	contentType, ok := allowedUploadTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: file type %q not allowed (want pdf, jpg, jpeg, png, doc, docx)", ErrUploadRejected, ext)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUploadRejected)
	}
	if len(data) > MaxUploadSize {
		return "", fmt.Errorf("%w: file exceeds 10 MiB limit", ErrUploadRejected)
	}
	return contentType, nil
}

func slotSetter(slot string) (func(*model.Documents, string), bool) {
	switch slot {
	case SlotAgreementCopy:
		return func(d *model.Documents, url string) { d.AgreementCopy = url }, true
	case SlotPaymentProof:
		return func(d *model.Documents, url string) { d.PaymentProof = url }, true
	case SlotDividendReceipts:
		return func(d *model.Documents, url string) { d.DividendReceipts = url }, true
	case SlotOtherDocuments:
		return func(d *model.Documents, url string) { d.OtherDocuments = url }, true
	}
	return nil, false
}
