package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"investorportal/internal/model"

	"github.com/google/uuid"
)

type fakePutter struct {
	calls int
	fail  error
}

func (p *fakePutter) Put(_ context.Context, keyHint string, _ []byte, _ string) (string, error) {
	p.calls++
	if p.fail != nil {
		return "", p.fail
	}
	return "https://files.example.com/investor-documents/" + keyHint, nil
}

func newTestDocumentService() (DocumentService, *fakeSubmissionRepo, *fakeAuditRepo, *fakePutter) {
	repo := newFakeSubmissionRepo()
	audit := &fakeAuditRepo{}
	putter := &fakePutter{}
	svc := NewDocumentService(repo, audit, fakeTxManager{}, putter)
	return svc, repo, audit, putter
}

func newStoredSubmission(repo *fakeSubmissionRepo, status string) (*model.Submission, string) {
	investorID := uuid.New()
	sub := &model.Submission{InvestorID: investorID, Status: status}
	_ = repo.Create(context.Background(), sub)
	return sub, investorID.String()
}

func TestUploadDocumentSetsSlot(t *testing.T) {
	svc, repo, audit, putter := newTestDocumentService()
	sub, investorID := newStoredSubmission(repo, model.StatusDraft)

	resp, err := svc.UploadDocument(context.Background(), investorID, sub.ID.String(), SlotAgreementCopy, "agreement.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if resp.Documents.AgreementCopy == "" {
		t.Fatal("expected agreementCopy reference to be set")
	}
	if putter.calls != 1 {
		t.Fatalf("expected one store call, got %d", putter.calls)
	}

	stored := repo.subs[sub.ID.String()]
	if stored.Documents.AgreementCopy != resp.Documents.AgreementCopy {
		t.Fatal("document reference not persisted")
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != model.ActionUploadDocument {
		t.Fatalf("expected an upload audit entry, got %+v", audit.entries)
	}
}

func TestUploadDocumentOverwritesSlot(t *testing.T) {
	svc, repo, _, _ := newTestDocumentService()
	sub, investorID := newStoredSubmission(repo, model.StatusDraft)

	first, err := svc.UploadDocument(context.Background(), investorID, sub.ID.String(), SlotPaymentProof, "proof-v1.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := svc.UploadDocument(context.Background(), investorID, sub.ID.String(), SlotPaymentProof, "proof-v2.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if second.Documents.PaymentProof == first.Documents.PaymentProof {
		t.Fatal("expected second upload to replace the slot reference")
	}
}

func TestUploadDocumentPolicyCheckedBeforeStore(t *testing.T) {
	svc, repo, _, putter := newTestDocumentService()
	sub, investorID := newStoredSubmission(repo, model.StatusDraft)

	cases := []struct {
		name     string
		slot     string
		fileName string
		data     []byte
	}{
		{"unknown slot", "passport", "a.pdf", []byte("x")},
		{"disallowed extension", SlotAgreementCopy, "malware.exe", []byte("x")},
		{"empty file", SlotAgreementCopy, "empty.pdf", nil},
		{"oversized file", SlotAgreementCopy, "big.pdf", bytes.Repeat([]byte("a"), MaxUploadSize+1)},
	}
	for _, tc := range cases {
		_, err := svc.UploadDocument(context.Background(), investorID, sub.ID.String(), tc.slot, tc.fileName, tc.data)
		if !errors.Is(err, ErrUploadRejected) {
			t.Fatalf("%s: expected ErrUploadRejected, got %v", tc.name, err)
		}
	}
	if putter.calls != 0 {
		t.Fatalf("rejected uploads must never reach the store, got %d calls", putter.calls)
	}
}

func TestUploadDocumentRefusesFrozenSubmission(t *testing.T) {
	svc, repo, _, putter := newTestDocumentService()
	sub, investorID := newStoredSubmission(repo, model.StatusPending)

	_, err := svc.UploadDocument(context.Background(), investorID, sub.ID.String(), SlotAgreementCopy, "agreement.pdf", []byte("%PDF-1.4"))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for pending submission, got %v", err)
	}
	if putter.calls != 0 {
		t.Fatal("frozen submission upload must not reach the store")
	}
}

func TestUploadDocumentUnknownSubmission(t *testing.T) {
	svc, _, _, _ := newTestDocumentService()

	_, err := svc.UploadDocument(context.Background(), uuid.New().String(), uuid.New().String(), SlotAgreementCopy, "a.pdf", []byte("x"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAttachConsentRequiresVerified(t *testing.T) {
	svc, repo, _, _ := newTestDocumentService()
	sub, investorID := newStoredSubmission(repo, model.StatusPending)

	_, err := svc.AttachConsent(context.Background(), investorID, sub.ID.String(), "consent.pdf", []byte("%PDF-1.4"))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for pending submission, got %v", err)
	}
}

func TestAttachConsentAndList(t *testing.T) {
	svc, repo, audit, _ := newTestDocumentService()
	sub, investorID := newStoredSubmission(repo, model.StatusVerified)

	doc, err := svc.AttachConsent(context.Background(), investorID, sub.ID.String(), "consent.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("attach consent: %v", err)
	}
	if doc.URL == "" {
		t.Fatal("expected a consent reference URL")
	}

	docs, err := svc.ListConsent(context.Background(), investorID, sub.ID.String())
	if err != nil {
		t.Fatalf("list consent: %v", err)
	}
	if len(docs) != 1 || docs[0].URL != doc.URL {
		t.Fatalf("expected the attached consent document, got %+v", docs)
	}

	found := false
	for _, e := range audit.entries {
		if e.Action == model.ActionAttachConsent {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a consent audit entry, got %+v", audit.entries)
	}
}

func TestListConsentUnknownSubmission(t *testing.T) {
	svc, _, _, _ := newTestDocumentService()

	_, err := svc.ListConsent(context.Background(), uuid.New().String(), uuid.New().String())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
