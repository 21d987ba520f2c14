package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"social-report/internal/mailer"
	"social-report/internal/refresh"
	"social-report/internal/reporting"
)

// maxEmailBody bounds relay requests; attachments arrive base64 encoded.
const maxEmailBody = 25 << 20

func newValidator() *validator.Validate {
	v := validator.New()
	// report json field names in messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.reports.Build(r.Context(), chi.URLParam(r, "client"), r.URL.Query().Get("range"))
	if err != nil {
		s.writeReportError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    res.Report,
		Count:   res.Report.TotalPosts,
	})
}

func (s *Server) handleReportPage(w http.ResponseWriter, r *http.Request) {
	html, _, err := s.reports.RenderHTML(r.Context(), chi.URLParam(r, "client"), r.URL.Query().Get("range"), false)
	if err != nil {
		s.writeReportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	doc, res, err := s.reports.ExportCSV(r.Context(), chi.URLParam(r, "client"), r.URL.Query().Get("range"))
	if err != nil {
		s.writeReportError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", attachment(s.reports.FileName(res.Client, doc.Extension)))
	_, _ = w.Write(doc.Data)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	doc, res, err := s.reports.ExportPDF(r.Context(), chi.URLParam(r, "client"), r.URL.Query().Get("range"))
	if err != nil {
		if errors.Is(err, reporting.ErrNoExporter) {
			s.writeError(w, "Document export is not configured", http.StatusNotImplemented)
			return
		}
		if errors.Is(err, reporting.ErrNotPDF) {
			s.writeError(w, "Configured exporter does not produce PDF", http.StatusNotImplemented)
			return
		}
		if errors.Is(err, reporting.ErrClientNotFound) {
			s.writeReportError(w, err)
			return
		}
		s.logger.Errorf("Export failed: %v", err)
		s.writeError(w, fmt.Sprintf("Failed to export report: %v", err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", attachment(s.reports.FileName(res.Client, doc.Extension)))
	_, _ = w.Write(doc.Data)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.reports.Client(chi.URLParam(r, "client")); err != nil {
		s.writeReportError(w, err)
		return
	}
	if s.refresher == nil {
		s.writeError(w, "Refresh not configured", http.StatusNotImplemented)
		return
	}

	err := s.refresher.Trigger(r.Context(), s.reports)
	var cooldown *refresh.CooldownError
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusAccepted, APIResponse{
			Success: true,
			Message: "Data refresh started. New data will be available in a few minutes.",
		})
	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cooldown.Remaining.Seconds()))))
		s.writeError(w, fmt.Sprintf("Please wait %d more minute(s) before refreshing.", cooldown.Minutes()), http.StatusTooManyRequests)
	case errors.Is(err, refresh.ErrNotConfigured):
		s.writeError(w, "Refresh not configured", http.StatusNotImplemented)
	default:
		s.logger.Errorf("Refresh failed: %v", err)
		s.writeError(w, fmt.Sprintf("Failed to trigger refresh: %v", err), http.StatusBadGateway)
	}
}

// handleEmail relays a rendered report to a recipient by email.
func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	var req mailer.RelayRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEmailBody))
	if err := dec.Decode(&req); err != nil {
		s.writeRelay(w, http.StatusBadRequest, false, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if err := s.validate.Struct(&req); err != nil {
		s.logger.Warnf("Rejected email request: %v", err)
		s.writeRelay(w, http.StatusBadRequest, false, validationMessage(err))
		return
	}
	if s.mailer == nil {
		s.writeRelay(w, http.StatusNotImplemented, false, "Email delivery is not configured")
		return
	}

	email, err := req.ToEmail(s.now())
	if err != nil {
		s.writeRelay(w, http.StatusBadRequest, false, err.Error())
		return
	}

	err = s.mailer.Send(r.Context(), email)
	if s.monitor != nil {
		slug := email.ClientName
		if s.reports != nil {
			slug = s.reports.SlugFor(email.ClientName)
		}
		s.monitor.RecordEmail(slug, err == nil)
	}
	if err != nil {
		s.logger.Errorf("Email delivery failed: %v", err)
		s.writeRelay(w, http.StatusBadGateway, false, err.Error())
		return
	}
	s.writeRelay(w, http.StatusOK, true, "Email sent successfully")
}

func (s *Server) writeRelay(w http.ResponseWriter, status int, ok bool, message string) {
	s.writeJSON(w, status, mailer.RelayResponse{Success: ok, Message: message})
}

// validationMessage collapses missing required fields into one message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	var invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return "Missing required fields"
		}
		invalid = append(invalid, fe.Field())
	}
	return "Invalid fields: " + strings.Join(invalid, ", ")
}

func (s *Server) writeReportError(w http.ResponseWriter, err error) {
	if errors.Is(err, reporting.ErrClientNotFound) {
		s.writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	s.logger.Errorf("Report failed: %v", err)
	s.writeError(w, fmt.Sprintf("Failed to build report: %v", err), http.StatusInternalServerError)
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
