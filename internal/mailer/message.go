package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"social-report/internal/export"
	"social-report/internal/render"
	"social-report/internal/utils"
)

const (
	DefaultClientName = "Client"
	DefaultReportType = "Performance Report"
)

// Sender delivers a report email.
type Sender interface {
	Send(ctx context.Context, email *ReportEmail) error
}

type SummaryMetrics struct {
	TotalPosts       int   `json:"totalPosts"`
	TotalImpressions int64 `json:"totalImpressions"`
}

type TopPost struct {
	Rank        int    `json:"rank"`
	Name        string `json:"name"`
	Platform    string `json:"platform"`
	Impressions int64  `json:"impressions"`
	URL         string `json:"url,omitempty"`
}

// RelayRequest is the JSON body accepted by the email relay.
type RelayRequest struct {
	RecipientEmail string          `json:"recipientEmail" validate:"required,email"`
	PDFBase64      string          `json:"pdfBase64" validate:"required,base64"`
	ReportDate     string          `json:"reportDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ClientName     string          `json:"clientName,omitempty" validate:"omitempty,max=200"`
	ReportType     string          `json:"reportType,omitempty" validate:"omitempty,max=200"`
	CSVBase64      string          `json:"csvBase64,omitempty" validate:"omitempty,base64"`
	FilterLabel    string          `json:"filterLabel,omitempty"`
	SummaryMetrics *SummaryMetrics `json:"summaryMetrics,omitempty"`
	TopPosts       []TopPost       `json:"topPosts,omitempty" validate:"max=20"`
}

// RelayResponse is the relay's reply.
type RelayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ReportEmail is a fully decoded email ready to send.
type ReportEmail struct {
	Recipient   string
	ClientName  string
	ReportType  string
	ReportDate  string
	PDF         []byte
	CSV         []byte
	FilterLabel string
	Summary     *SummaryMetrics
	TopPosts    []TopPost
}

// ToEmail decodes the attachments and fills in defaults.
func (r *RelayRequest) ToEmail(now time.Time) (*ReportEmail, error) {
	pdf, err := base64.StdEncoding.DecodeString(r.PDFBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pdf attachment: %w", err)
	}
	email := &ReportEmail{
		Recipient:   strings.TrimSpace(r.RecipientEmail),
		ClientName:  r.ClientName,
		ReportType:  r.ReportType,
		ReportDate:  r.ReportDate,
		PDF:         pdf,
		FilterLabel: r.FilterLabel,
		Summary:     r.SummaryMetrics,
		TopPosts:    r.TopPosts,
	}
	if r.CSVBase64 != "" {
		if email.CSV, err = base64.StdEncoding.DecodeString(r.CSVBase64); err != nil {
			return nil, fmt.Errorf("failed to decode csv attachment: %w", err)
		}
	}
	email.ApplyDefaults(now)
	return email, nil
}

// NewRelayRequest is the inverse of ToEmail.
func NewRelayRequest(email *ReportEmail) *RelayRequest {
	req := &RelayRequest{
		RecipientEmail: email.Recipient,
		PDFBase64:      base64.StdEncoding.EncodeToString(email.PDF),
		ReportDate:     email.ReportDate,
		ClientName:     email.ClientName,
		ReportType:     email.ReportType,
		FilterLabel:    email.FilterLabel,
		SummaryMetrics: email.Summary,
		TopPosts:       email.TopPosts,
	}
	if len(email.CSV) > 0 {
		req.CSVBase64 = base64.StdEncoding.EncodeToString(email.CSV)
	}
	return req
}

func (e *ReportEmail) ApplyDefaults(now time.Time) {
	if strings.TrimSpace(e.ClientName) == "" {
		e.ClientName = DefaultClientName
	}
	if strings.TrimSpace(e.ReportType) == "" {
		e.ReportType = DefaultReportType
	}
	if e.ReportDate == "" {
		e.ReportDate = utils.FormatDate(now)
	}
}

func (e *ReportEmail) Subject() string {
	return fmt.Sprintf("%s %s - %s", e.ClientName, e.ReportType, e.ReportDate)
}

func (e *ReportEmail) PDFName() string {
	return export.FileNameForDate(e.ClientName, e.ReportDate, "pdf")
}

func (e *ReportEmail) CSVName() string {
	return export.FileNameForDate(e.ClientName, e.ReportDate, "csv")
}

// Body is the plain text message, signed with signature.
func (e *ReportEmail) Body(signature string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nPlease find attached the %s %s.\n", e.ClientName, e.ReportType)

	if e.FilterLabel != "" {
		fmt.Fprintf(&b, "\nPeriod: %s\n", e.FilterLabel)
	}
	if e.Summary != nil {
		fmt.Fprintf(&b, "\nSummary:\n- Total Posts: %s\n- Impressions: %s\n",
			render.GroupThousands(int64(e.Summary.TotalPosts)),
			render.FormatNumber(e.Summary.TotalImpressions))
	}
	if len(e.TopPosts) > 0 {
		b.WriteString("\nTop Posts by Impressions:\n")
		for _, p := range e.TopPosts {
			fmt.Fprintf(&b, "%d. %s · %s: %s", p.Rank, p.Name, p.Platform, render.FormatNumber(p.Impressions))
			if p.URL != "" && p.URL != "#" {
				fmt.Fprintf(&b, " (%s)", p.URL)
			}
			b.WriteString("\n")
		}
	}

	if signature == "" {
		signature = "Analytics Team"
	}
	fmt.Fprintf(&b, "\nBest regards,\n%s", signature)
	return b.String()
}
