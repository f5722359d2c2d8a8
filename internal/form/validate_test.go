package form

import (
	"testing"

	"investorportal/internal/model"
)

// validSubmission returns a submission that passes every section.
func validSubmission() *model.Submission {
	return &model.Submission{
		PersonalInfo: model.PersonalInfo{
			FullName: "Jane Doe",
			Email:    "jane@example.com",
			DialCode: "+971",
			Phone:    "0501234567",
			Country:  "United Arab Emirates",
		},
		BankDetails: model.BankDetails{
			BankName:      "First National",
			AccountNumber: "1234567890",
			AccountHolder: "Jane Doe",
		},
		InvestmentDetails: model.InvestmentDetails{
			Amount:                "250000",
			InvestmentDate:        "2023-04-01",
			Duration:              "36 months",
			AnnualDividendPercent: "8.5",
			DividendFrequency:     "quarterly",
			Status:                "active",
		},
		DividendHistory: model.DividendHistory{
			TotalReceived: "42500",
		},
		Declaration: model.Declaration{
			Confirmed:  true,
			Signature:  "Jane Doe",
			SignedDate: "2024-01-15",
		},
	}
}

func TestSectionValidSubmissionPassesAll(t *testing.T) {
	sub := validSubmission()
	for n := 1; n <= model.SectionCount; n++ {
		errs, err := Section(n, sub)
		if err != nil {
			t.Fatalf("section %d: unexpected error: %v", n, err)
		}
		if len(errs) != 0 {
			t.Fatalf("section %d: expected no field errors, got %v", n, errs)
		}
	}
}

func TestSectionInvalidIndex(t *testing.T) {
	for _, n := range []int{0, 8, -1} {
		if _, err := Section(n, validSubmission()); err == nil {
			t.Fatalf("expected error for section index %d", n)
		}
	}
}

func TestSectionPersonalInfoMissingCountry(t *testing.T) {
	sub := validSubmission()
	sub.PersonalInfo.Country = ""

	errs, err := Section(model.SectionPersonalInfo, sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := errs["personalInfo.country"]; got != "Required" {
		t.Fatalf("expected personalInfo.country Required, got %q (all: %v)", got, errs)
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly one field error, got %v", errs)
	}
}

func TestSectionWhitespaceOnlyIsMissing(t *testing.T) {
	sub := validSubmission()
	sub.BankDetails.BankName = "   "

	errs, _ := Section(model.SectionBankDetails, sub)
	if errs["bankDetails.bankName"] != "Required" {
		t.Fatalf("whitespace-only bank name should fail, got %v", errs)
	}
}

func TestSectionInvestmentAmountMustBeNumeric(t *testing.T) {
	sub := validSubmission()
	sub.InvestmentDetails.Amount = "a lot"

	errs, _ := Section(model.SectionInvestmentDetails, sub)
	if errs["investmentDetails.amount"] != "Must be a number" {
		t.Fatalf("expected numeric failure for amount, got %v", errs)
	}
}

func TestSectionChequeFieldsOnlyWhenPaidByCheque(t *testing.T) {
	sub := validSubmission()

	// Not paying by cheque: cheque fields may stay empty.
	errs, _ := Section(model.SectionInvestmentDetails, sub)
	if len(errs) != 0 {
		t.Fatalf("expected clean section without cheque, got %v", errs)
	}

	sub.InvestmentDetails.PaymentMethod.PaidByCheque = true
	errs, _ = Section(model.SectionInvestmentDetails, sub)
	if errs["investmentDetails.paymentMethod.chequeNumber"] != "Required" {
		t.Fatalf("expected chequeNumber required when paying by cheque, got %v", errs)
	}
	if errs["investmentDetails.paymentMethod.chequeDate"] != "Required" {
		t.Fatalf("expected chequeDate required when paying by cheque, got %v", errs)
	}

	sub.InvestmentDetails.PaymentMethod.ChequeNumber = "000123"
	sub.InvestmentDetails.PaymentMethod.ChequeDate = "2023-04-01"
	errs, _ = Section(model.SectionInvestmentDetails, sub)
	if len(errs) != 0 {
		t.Fatalf("expected clean section with cheque details filled, got %v", errs)
	}
}

func TestSectionPendingAmountOnlyWhenHasPending(t *testing.T) {
	sub := validSubmission()

	errs, _ := Section(model.SectionDividendHistory, sub)
	if len(errs) != 0 {
		t.Fatalf("expected clean dividend section, got %v", errs)
	}

	sub.DividendHistory.HasPending = true
	errs, _ = Section(model.SectionDividendHistory, sub)
	if errs["dividendHistory.pendingAmount"] != "Required" {
		t.Fatalf("expected pendingAmount required with pending dividends, got %v", errs)
	}

	sub.DividendHistory.PendingAmount = "not-a-number"
	errs, _ = Section(model.SectionDividendHistory, sub)
	if errs["dividendHistory.pendingAmount"] != "Must be a number" {
		t.Fatalf("expected numeric failure for pendingAmount, got %v", errs)
	}
}

func TestSectionTotalReceivedOptionalButNumeric(t *testing.T) {
	sub := validSubmission()
	sub.DividendHistory.TotalReceived = ""

	errs, _ := Section(model.SectionDividendHistory, sub)
	if len(errs) != 0 {
		t.Fatalf("empty totalReceived should pass, got %v", errs)
	}

	sub.DividendHistory.TotalReceived = "12x"
	errs, _ = Section(model.SectionDividendHistory, sub)
	if errs["dividendHistory.totalReceived"] != "Must be a number" {
		t.Fatalf("expected numeric failure for totalReceived, got %v", errs)
	}
}

func TestSectionDeclarationConfirmation(t *testing.T) {
	sub := validSubmission()
	sub.Declaration.Confirmed = false

	errs, _ := Section(model.SectionDeclaration, sub)
	if errs["declaration.confirmed"] != "You must confirm the declaration" {
		t.Fatalf("expected confirmation message, got %v", errs)
	}
}

func TestSectionDocumentsAndRemarksAlwaysPass(t *testing.T) {
	sub := &model.Submission{} // entirely empty
	for _, n := range []int{model.SectionDocuments, model.SectionRemarks} {
		errs, _ := Section(n, sub)
		if len(errs) != 0 {
			t.Fatalf("section %d has no required fields, got %v", n, errs)
		}
	}
}

func TestAllAggregatesAcrossSections(t *testing.T) {
	sub := validSubmission()
	sub.PersonalInfo.Email = ""
	sub.BankDetails.AccountNumber = ""
	sub.Declaration.Signature = ""

	errs := All(sub)
	for _, path := range []string{"personalInfo.email", "bankDetails.accountNumber", "declaration.signature"} {
		if errs[path] != "Required" {
			t.Fatalf("expected %s in aggregate errors, got %v", path, errs)
		}
	}
	if len(errs) != 3 {
		t.Fatalf("expected exactly 3 errors, got %v", errs)
	}
}

func TestCompletedSections(t *testing.T) {
	sub := &model.Submission{}
	// An empty draft still completes the optional sections.
	got := CompletedSections(sub)
	want := []int{model.SectionDocuments, model.SectionRemarks}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}

	full := CompletedSections(validSubmission())
	if len(full) != model.SectionCount {
		t.Fatalf("expected all %d sections complete, got %v", model.SectionCount, full)
	}
}

func TestFieldErrorsError(t *testing.T) {
	errs := FieldErrors{"personalInfo.country": "Required"}
	msg := errs.Error()
	if msg == "" || msg == "validation passed" {
		t.Fatalf("expected descriptive message, got %q", msg)
	}
}
