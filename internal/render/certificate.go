// Package render produces printable closure documents from finalized
// submissions. The renderer receives validated data only; field layout here
// is deliberately plain so a downstream PDF pipeline can restyle it.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"investorportal/internal/model"

	"github.com/shopspring/decimal"
)

// Renderer turns a finalized submission into a printable document.
type Renderer interface {
	RenderCertificate(ctx context.Context, sub *model.Submission) ([]byte, error)
}

type certificateData struct {
	ReferenceNo     string
	FullName        string
	Country         string
	Phone           string
	Amount          string
	InvestmentDate  string
	Duration        string
	DividendPercent string
	TotalReceived   string
	AgreementNumber string
	SignedDate      string
	Signature       string
	SubmittedAt     string
	GeneratedAt     string
}

var certificateTmpl = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Investment Closure Certificate {{.ReferenceNo}}</title></head>
<body>
  <h1>Investment Closure Certificate</h1>
  <p>Reference: <strong>{{.ReferenceNo}}</strong></p>
  <h2>Investor</h2>
  <p>{{.FullName}} &mdash; {{.Country}} &mdash; {{.Phone}}</p>
  {{if .AgreementNumber}}<p>Court agreement number: {{.AgreementNumber}}</p>{{end}}
  <h2>Investment</h2>
  <table>
    <tr><td>Amount</td><td>{{.Amount}}</td></tr>
    <tr><td>Investment date</td><td>{{.InvestmentDate}}</td></tr>
    <tr><td>Duration</td><td>{{.Duration}}</td></tr>
    <tr><td>Annual dividend</td><td>{{.DividendPercent}}%</td></tr>
    <tr><td>Total dividends received</td><td>{{.TotalReceived}}</td></tr>
  </table>
  <h2>Declaration</h2>
  <p>Signed by {{.Signature}} on {{.SignedDate}}.</p>
  <p>Submitted {{.SubmittedAt}}. Generated {{.GeneratedAt}}.</p>
</body>
</html>
`))

type htmlRenderer struct {
	now func() time.Time
}

// NewHTMLRenderer returns the default document renderer.
func NewHTMLRenderer() Renderer {
	return &htmlRenderer{now: time.Now}
}

func (r *htmlRenderer) RenderCertificate(_ context.Context, sub *model.Submission) ([]byte, error) {
	if sub.ReferenceNo == "" {
		return nil, fmt.Errorf("submission has no reference number")
	}

	data := certificateData{
		ReferenceNo:     sub.ReferenceNo,
		FullName:        sub.PersonalInfo.FullName,
		Country:         sub.PersonalInfo.Country,
		Phone:           sub.PhoneE164,
		Amount:          formatAmount(sub.InvestmentDetails.Amount),
		InvestmentDate:  sub.InvestmentDetails.InvestmentDate,
		Duration:        sub.InvestmentDetails.Duration,
		DividendPercent: sub.InvestmentDetails.AnnualDividendPercent,
		TotalReceived:   formatAmount(sub.DividendHistory.TotalReceived),
		AgreementNumber: sub.CourtAgreementNumber,
		SignedDate:      sub.Declaration.SignedDate,
		Signature:       sub.Declaration.Signature,
		GeneratedAt:     r.now().Format("2006-01-02 15:04"),
	}
	if sub.SubmittedAt != nil {
		data.SubmittedAt = sub.SubmittedAt.Format("2006-01-02 15:04")
	}

	var buf bytes.Buffer
	if err := certificateTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}
	return buf.Bytes(), nil
}

// formatAmount renders monetary strings with two decimal places; values that
// never passed validation are returned as-is.
func formatAmount(v string) string {
	if v == "" {
		return "0.00"
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return v
	}
	return d.StringFixed(2)
}
