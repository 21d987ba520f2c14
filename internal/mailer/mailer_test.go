package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-report/internal/config"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func TestToEmailAppliesDefaults(t *testing.T) {
	req := &RelayRequest{
		RecipientEmail: " ops@example.com ",
		PDFBase64:      base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
	}

	email, err := req.ToEmail(fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "ops@example.com", email.Recipient)
	assert.Equal(t, "Client", email.ClientName)
	assert.Equal(t, "Performance Report", email.ReportType)
	assert.Equal(t, "2024-03-10", email.ReportDate)
	assert.Equal(t, []byte("%PDF-1.4"), email.PDF)
	assert.Nil(t, email.CSV)
}

func TestToEmailRejectsBadBase64(t *testing.T) {
	_, err := (&RelayRequest{RecipientEmail: "a@b.co", PDFBase64: "!!"}).ToEmail(fixedNow)
	assert.Error(t, err)

	_, err = (&RelayRequest{
		RecipientEmail: "a@b.co",
		PDFBase64:      "JVBERg==",
		CSVBase64:      "%%",
	}).ToEmail(fixedNow)
	assert.Error(t, err)
}

func TestSubjectAndAttachmentNames(t *testing.T) {
	email := &ReportEmail{ClientName: "Super Betin  V2", ReportType: "Weekly Report", ReportDate: "2024-03-08"}

	assert.Equal(t, "Super Betin  V2 Weekly Report - 2024-03-08", email.Subject())
	assert.Equal(t, "Super_Betin_V2_Report_2024-03-08.pdf", email.PDFName())
	assert.Equal(t, "Super_Betin_V2_Report_2024-03-08.csv", email.CSVName())
}

func TestBody(t *testing.T) {
	email := &ReportEmail{ClientName: "Superbetin", ReportType: "Performance Report", ReportDate: "2024-03-08"}
	assert.Equal(t,
		"Hello,\n\nPlease find attached the Superbetin Performance Report.\n\nBest regards,\nReports Desk",
		email.Body("Reports Desk"))

	email.FilterLabel = "Past 7 Days"
	email.Summary = &SummaryMetrics{TotalPosts: 1234, TotalImpressions: 45600}
	email.TopPosts = []TopPost{
		{Rank: 1, Name: "Ayse", Platform: "Instagram", Impressions: 2000, URL: "https://www.instagram.com/reel/B/"},
		{Rank: 2, Name: "Unknown", Platform: "-", Impressions: 10, URL: "#"},
	}
	body := email.Body("")

	assert.Contains(t, body, "Period: Past 7 Days")
	assert.Contains(t, body, "- Total Posts: 1,234")
	assert.Contains(t, body, "- Impressions: 45.6K")
	assert.Contains(t, body, "1. Ayse · Instagram: 2.0K (https://www.instagram.com/reel/B/)")
	assert.Contains(t, body, "2. Unknown · -: 10\n")
	assert.True(t, strings.HasSuffix(body, "Best regards,\nAnalytics Team"))
}

func TestBuildMessage(t *testing.T) {
	sm, err := NewSMTPMailer(config.EmailConfig{
		SMTPHost: "smtp.example.com",
		From:     "reports@example.com",
		FromName: "Reports Desk",
		CC:       []string{"lead@example.com", "audit@example.com"},
	}, quietLogger())
	require.NoError(t, err)

	email := &ReportEmail{
		Recipient:  "client@example.com",
		ClientName: "Superbetin",
		ReportType: "Performance Report",
		ReportDate: "2024-03-08",
		PDF:        []byte("%PDF-1.4 body"),
		CSV:        []byte("Created At,Platform\n"),
	}
	m := sm.BuildMessage(email)

	assert.Equal(t, []string{"client@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"lead@example.com", "audit@example.com"}, m.GetHeader("Cc"))
	assert.Equal(t, []string{"Superbetin Performance Report - 2024-03-08"}, m.GetHeader("Subject"))
	assert.Contains(t, m.GetHeader("From")[0], "reports@example.com")

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, `filename="Superbetin_Report_2024-03-08.pdf"`)
	assert.Contains(t, raw, `filename="Superbetin_Report_2024-03-08.csv"`)
	assert.Contains(t, raw, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 body")))
}

func TestNewSMTPMailerRequiresHostAndSender(t *testing.T) {
	_, err := NewSMTPMailer(config.EmailConfig{}, quietLogger())
	assert.Error(t, err)

	_, err = NewSMTPMailer(config.EmailConfig{SMTPHost: "smtp.example.com"}, quietLogger())
	assert.Error(t, err)
}

func TestSMTPSendHonoursCancelledContext(t *testing.T) {
	sm, err := NewSMTPMailer(config.EmailConfig{SMTPHost: "127.0.0.1", SMTPPort: 1, From: "a@example.com"}, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sm.Send(ctx, &ReportEmail{Recipient: "b@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRelayClient(t *testing.T) {
	var got RelayRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"message":"Email sent successfully"}`))
	}))
	defer server.Close()

	rc := NewRelayClient(server.URL, time.Second, quietLogger())
	err := rc.Send(context.Background(), &ReportEmail{
		Recipient:   "client@example.com",
		ClientName:  "Superbetin",
		ReportDate:  "2024-03-08",
		PDF:         []byte("pdf"),
		FilterLabel: "All Time",
		Summary:     &SummaryMetrics{TotalPosts: 3, TotalImpressions: 900},
	})
	require.NoError(t, err)

	assert.Equal(t, "client@example.com", got.RecipientEmail)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("pdf")), got.PDFBase64)
	assert.Empty(t, got.CSVBase64)
	assert.Equal(t, "All Time", got.FilterLabel)
	require.NotNil(t, got.SummaryMetrics)
	assert.Equal(t, int64(900), got.SummaryMetrics.TotalImpressions)
}

func TestRelayClientReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"Missing required fields"}`))
	}))
	defer server.Close()

	err := NewRelayClient(server.URL, time.Second, quietLogger()).
		Send(context.Background(), &ReportEmail{Recipient: "x@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing required fields")
}

func TestNewPicksRelayWhenConfigured(t *testing.T) {
	sender, err := New(config.EmailConfig{RelayURL: "http://relay.local/send"}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &RelayClient{}, sender)

	sender, err = New(config.EmailConfig{SMTPHost: "smtp.example.com", From: "a@example.com"}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, sender)
}
