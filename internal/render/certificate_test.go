package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"investorportal/internal/model"
)

func verifiedSubmission() *model.Submission {
	submitted := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	return &model.Submission{
		Status:               model.StatusVerified,
		ReferenceNo:          "CLS-20260820-00007",
		CourtAgreementNumber: "CA-2024-0042",
		PhoneE164:            "+971501234567",
		PersonalInfo: model.PersonalInfo{
			FullName: "Jane Doe",
			Country:  "United Arab Emirates",
		},
		InvestmentDetails: model.InvestmentDetails{
			Amount:                "250000",
			InvestmentDate:        "2023-04-01",
			Duration:              "36 months",
			AnnualDividendPercent: "8.5",
		},
		DividendHistory: model.DividendHistory{TotalReceived: "42500.5"},
		Declaration: model.Declaration{
			Signature:  "Jane Doe",
			SignedDate: "2026-08-01",
		},
		SubmittedAt: &submitted,
	}
}

func TestRenderCertificate(t *testing.T) {
	r := &htmlRenderer{now: func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }}

	out, err := r.RenderCertificate(context.Background(), verifiedSubmission())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	doc := string(out)
	for _, want := range []string{
		"CLS-20260820-00007",
		"Jane Doe",
		"+971501234567",
		"250000.00",  // amount normalized to two decimals
		"42500.50",   // dividends likewise
		"CA-2024-0042",
		"2026-08-29 12:00", // generation timestamp
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("certificate missing %q:\n%s", want, doc)
		}
	}
}

func TestRenderCertificateRequiresReferenceNo(t *testing.T) {
	r := NewHTMLRenderer()
	sub := verifiedSubmission()
	sub.ReferenceNo = ""

	if _, err := r.RenderCertificate(context.Background(), sub); err == nil {
		t.Fatal("expected error for missing reference number")
	}
}

func TestRenderCertificateEscapesContent(t *testing.T) {
	r := NewHTMLRenderer()
	sub := verifiedSubmission()
	sub.PersonalInfo.FullName = `<script>alert("x")</script>`

	out, err := r.RenderCertificate(context.Background(), sub)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(out), "<script>") {
		t.Fatal("expected HTML content to be escaped")
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "0.00"},
		{"250000", "250000.00"},
		{"42500.5", "42500.50"},
		{"not-a-number", "not-a-number"},
	}
	for _, tc := range cases {
		if got := formatAmount(tc.in); got != tc.want {
			t.Fatalf("formatAmount(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
