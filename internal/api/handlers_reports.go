// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/onside-hq/onside/internal/database"
	"github.com/onside-hq/onside/internal/logging"
	"github.com/onside-hq/onside/internal/models"
	"github.com/onside-hq/onside/internal/validation"
)

type createReportRequest struct {
	CompanyID  string `json:"company_id" validate:"required,uuid"`
	PeriodDays int    `json:"period_days" validate:"omitempty,gte=1,lte=365"`
}

// handleCreateReport creates a pending report and starts its build in the
// background. The response returns immediately with the pending row.
func (h *Handler) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "report builder unavailable")
		return
	}

	var req createReportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid company_id")
		return
	}

	if _, err := h.store.GetCompany(r.Context(), companyID); err != nil {
		respondStoreError(w, r, err, "company")
		return
	}

	periodDays := req.PeriodDays
	if periodDays < 1 {
		periodDays = h.cfg.Reports.DefaultPeriodDays
	}
	now := time.Now().UTC()
	report := &models.Report{
		CompanyID:   companyID,
		PeriodStart: now.AddDate(0, 0, -periodDays),
		PeriodEnd:   now,
		Status:      models.ReportStatusPending,
	}
	if err := h.store.InsertReport(r.Context(), report); err != nil {
		respondStoreError(w, r, err, "report")
		return
	}

	// The build outlives the request.
	requestID := logging.RequestIDFromContext(r.Context())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.buildTimeout)
		defer cancel()
		ctx = logging.ContextWithRequestID(ctx, requestID)
		if err := h.runner.Build(ctx, report); err != nil {
			logger := logging.Ctx(ctx)
			logger.Error().Err(err).Str("report_id", report.ID.String()).Msg("Report build failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, report, started)
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id, err := pathUUID(r, "reportID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	report, err := h.store.GetReport(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err, "report")
		return
	}
	respondJSON(w, http.StatusOK, report, started)
}

func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	companyID, err := queryUUID(r, "company_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid company_id")
		return
	}

	limit, offset := parsePagination(r)
	filter := database.ReportFilter{
		CompanyID: companyID,
		Status:    r.URL.Query().Get("status"),
		Limit:     limit,
		Offset:    offset,
	}

	reports, total, err := h.store.ListReports(r.Context(), filter)
	if err != nil {
		respondStoreError(w, r, err, "reports")
		return
	}
	respondJSON(w, http.StatusOK, listEnvelope{Items: reports, Total: total}, started)
}

// handleDownloadReport streams the rendered PDF.
func (h *Handler) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "reportID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	report, err := h.store.GetReport(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err, "report")
		return
	}
	if report.Status != models.ReportStatusCompleted || report.PDFPath == "" {
		respondError(w, http.StatusConflict, codeBadRequest, "report is not completed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report-`+report.ID.String()+`.pdf"`)
	http.ServeFile(w, r, report.PDFPath)
}

type createScheduleRequest struct {
	CompanyID       string `json:"company_id" validate:"required,uuid"`
	IntervalSeconds int64  `json:"interval_seconds" validate:"required,gte=300"`
	PeriodDays      int    `json:"period_days" validate:"omitempty,gte=1,lte=365"`
	Enabled         *bool  `json:"enabled"`
}

func (h *Handler) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req createScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid company_id")
		return
	}

	if _, err := h.store.GetCompany(r.Context(), companyID); err != nil {
		respondStoreError(w, r, err, "company")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	periodDays := req.PeriodDays
	if periodDays < 1 {
		periodDays = h.cfg.Reports.DefaultPeriodDays
	}

	schedule := &models.ReportSchedule{
		CompanyID:  companyID,
		Interval:   time.Duration(req.IntervalSeconds) * time.Second,
		PeriodDays: periodDays,
		Enabled:    enabled,
	}
	if err := h.store.InsertReportSchedule(r.Context(), schedule); err != nil {
		respondStoreError(w, r, err, "schedule")
		return
	}
	respondJSON(w, http.StatusCreated, schedule, started)
}

func (h *Handler) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id, err := pathUUID(r, "scheduleID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	schedule, err := h.store.GetReportSchedule(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err, "schedule")
		return
	}
	respondJSON(w, http.StatusOK, schedule, started)
}

func (h *Handler) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	schedules, err := h.store.ListReportSchedules(r.Context())
	if err != nil {
		respondStoreError(w, r, err, "schedules")
		return
	}
	respondJSON(w, http.StatusOK, listEnvelope{Items: schedules, Total: int64(len(schedules))}, started)
}

func (h *Handler) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id, err := pathUUID(r, "scheduleID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := h.store.DeleteReportSchedule(r.Context(), id); err != nil {
		respondStoreError(w, r, err, "schedule")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id.String()}, started)
}
