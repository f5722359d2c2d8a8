// Package form validates the seven sections of the investment-closure form.
// Validation is pure: it reads a submission and returns field errors, never
// touching storage. The same rules gate section navigation on drafts and the
// final draft -> pending transition.
package form

import (
	"fmt"
	"strings"

	"investorportal/internal/model"

	"github.com/shopspring/decimal"
)

// FieldErrors maps a field path (e.g. "personalInfo.country") to a
// user-facing message. An empty map means the checked scope is valid.
type FieldErrors map[string]string

// Error implements error so a validation result can travel through the
// service layer like any other failure.
func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation passed"
	}
	paths := make([]string, 0, len(e))
	for p := range e {
		paths = append(paths, p)
	}
	return fmt.Sprintf("%d field(s) failed validation: %s", len(e), strings.Join(paths, ", "))
}

const (
	msgRequired = "Required"
	msgNumeric  = "Must be a number"
	msgConfirm  = "You must confirm the declaration"
)

// rule is one field requirement. When `when` is non-nil the rule only applies
// while the predicate holds (cheque fields, pending-dividend fields).
type rule struct {
	path  string
	when  func(*model.Submission) bool
	check func(*model.Submission) string // "" when the field passes
}

func required(get func(*model.Submission) string) func(*model.Submission) string {
	return func(s *model.Submission) string {
		if strings.TrimSpace(get(s)) == "" {
			return msgRequired
		}
		return ""
	}
}

func numeric(get func(*model.Submission) string) func(*model.Submission) string {
	return func(s *model.Submission) string {
		v := strings.TrimSpace(get(s))
		if v == "" {
			return msgRequired
		}
		if _, err := decimal.NewFromString(v); err != nil {
			return msgNumeric
		}
		return ""
	}
}

// numericIfSet accepts an empty value but rejects unparsable non-empty ones.
func numericIfSet(get func(*model.Submission) string) func(*model.Submission) string {
	return func(s *model.Submission) string {
		v := strings.TrimSpace(get(s))
		if v == "" {
			return ""
		}
		if _, err := decimal.NewFromString(v); err != nil {
			return msgNumeric
		}
		return ""
	}
}

func paidByCheque(s *model.Submission) bool { return s.InvestmentDetails.PaymentMethod.PaidByCheque }
func hasPending(s *model.Submission) bool   { return s.DividendHistory.HasPending }

// sectionRules holds the fixed required-field set per section, indexed 1..7.
// Conditional requirements are enforced: the original form declared cheque and
// pending-dividend fields without gating them, which let inconsistent records
// through review; here the predicate decides and the rule is hard.
var sectionRules = map[int][]rule{
	model.SectionPersonalInfo: {
		{path: "personalInfo.fullName", check: required(func(s *model.Submission) string { return s.PersonalInfo.FullName })},
		{path: "personalInfo.email", check: required(func(s *model.Submission) string { return s.PersonalInfo.Email })},
		{path: "personalInfo.phone", check: required(func(s *model.Submission) string { return s.PersonalInfo.Phone })},
		{path: "personalInfo.country", check: required(func(s *model.Submission) string { return s.PersonalInfo.Country })},
	},
	model.SectionBankDetails: {
		{path: "bankDetails.bankName", check: required(func(s *model.Submission) string { return s.BankDetails.BankName })},
		{path: "bankDetails.accountNumber", check: required(func(s *model.Submission) string { return s.BankDetails.AccountNumber })},
		{path: "bankDetails.accountHolder", check: required(func(s *model.Submission) string { return s.BankDetails.AccountHolder })},
	},
	model.SectionInvestmentDetails: {
		{path: "investmentDetails.amount", check: numeric(func(s *model.Submission) string { return s.InvestmentDetails.Amount })},
		{path: "investmentDetails.investmentDate", check: required(func(s *model.Submission) string { return s.InvestmentDetails.InvestmentDate })},
		{path: "investmentDetails.duration", check: required(func(s *model.Submission) string { return s.InvestmentDetails.Duration })},
		{path: "investmentDetails.annualDividendPercent", check: numeric(func(s *model.Submission) string { return s.InvestmentDetails.AnnualDividendPercent })},
		{path: "investmentDetails.dividendFrequency", check: required(func(s *model.Submission) string { return s.InvestmentDetails.DividendFrequency })},
		{path: "investmentDetails.status", check: required(func(s *model.Submission) string { return s.InvestmentDetails.Status })},
		{path: "investmentDetails.paymentMethod.chequeNumber", when: paidByCheque,
			check: required(func(s *model.Submission) string { return s.InvestmentDetails.PaymentMethod.ChequeNumber })},
		{path: "investmentDetails.paymentMethod.chequeDate", when: paidByCheque,
			check: required(func(s *model.Submission) string { return s.InvestmentDetails.PaymentMethod.ChequeDate })},
	},
	model.SectionDividendHistory: {
		{path: "dividendHistory.totalReceived", check: numericIfSet(func(s *model.Submission) string { return s.DividendHistory.TotalReceived })},
		{path: "dividendHistory.pendingAmount", when: hasPending,
			check: numeric(func(s *model.Submission) string { return s.DividendHistory.PendingAmount })},
	},
	model.SectionDocuments: {}, // attachments are optional per slot
	model.SectionRemarks:   {},
	model.SectionDeclaration: {
		{path: "declaration.confirmed", check: func(s *model.Submission) string {
			if !s.Declaration.Confirmed {
				return msgConfirm
			}
			return ""
		}},
		{path: "declaration.signature", check: required(func(s *model.Submission) string { return s.Declaration.Signature })},
	},
}

// Section validates one section (1..7) of the submission. An out-of-range
// index is a caller bug, reported as an error rather than a field failure.
func Section(n int, s *model.Submission) (FieldErrors, error) {
	rules, ok := sectionRules[n]
	if !ok {
		return nil, fmt.Errorf("form: invalid section index %d (want 1..%d)", n, model.SectionCount)
	}

	errs := FieldErrors{}
	for _, r := range rules {
		if r.when != nil && !r.when(s) {
			continue
		}
		if msg := r.check(s); msg != "" {
			errs[r.path] = msg
		}
	}
	return errs, nil
}

// All validates every section and returns the union of field errors.
func All(s *model.Submission) FieldErrors {
	errs := FieldErrors{}
	for n := 1; n <= model.SectionCount; n++ {
		sectionErrs, _ := Section(n, s)
		for path, msg := range sectionErrs {
			errs[path] = msg
		}
	}
	return errs
}

// CompletedSections returns the indices of sections that currently pass
// validation, in ascending order. Used for draft progress reporting.
func CompletedSections(s *model.Submission) []int {
	completed := make([]int, 0, model.SectionCount)
	for n := 1; n <= model.SectionCount; n++ {
		sectionErrs, _ := Section(n, s)
		if len(sectionErrs) == 0 {
			completed = append(completed, n)
		}
	}
	return completed
}
