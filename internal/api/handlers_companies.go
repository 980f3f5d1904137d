// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/onside-hq/onside/internal/models"
	"github.com/onside-hq/onside/internal/validation"
)

type companyRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=256"`
	Domain string `json:"domain" validate:"omitempty,fqdn"`
}

type competitorRequest struct {
	Name      string   `json:"name" validate:"required,min=1,max=256"`
	Domain    string   `json:"domain" validate:"omitempty,fqdn"`
	Keywords  []string `json:"keywords" validate:"max=32,dive,min=1,max=128"`
	ChannelID string   `json:"channel_id" validate:"omitempty,max=64"`
}

type listEnvelope struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}

// parsePagination reads limit/offset query parameters.
func parsePagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

func (h *Handler) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req companyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	company := &models.Company{Name: req.Name, Domain: req.Domain}
	if err := h.store.InsertCompany(r.Context(), company); err != nil {
		respondStoreError(w, r, err, "company")
		return
	}
	respondJSON(w, http.StatusCreated, company, started)
}

func (h *Handler) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id, err := pathUUID(r, "companyID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	company, err := h.store.GetCompany(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err, "company")
		return
	}
	respondJSON(w, http.StatusOK, company, started)
}

func (h *Handler) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	limit, offset := parsePagination(r)
	companies, total, err := h.store.ListCompanies(r.Context(), limit, offset)
	if err != nil {
		respondStoreError(w, r, err, "companies")
		return
	}
	respondJSON(w, http.StatusOK, listEnvelope{Items: companies, Total: total}, started)
}

func (h *Handler) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id, err := pathUUID(r, "companyID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	var req companyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	company := &models.Company{ID: id, Name: req.Name, Domain: req.Domain}
	if err := h.store.UpdateCompany(r.Context(), company); err != nil {
		respondStoreError(w, r, err, "company")
		return
	}
	respondJSON(w, http.StatusOK, company, started)
}

func (h *Handler) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id, err := pathUUID(r, "companyID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := h.store.DeleteCompany(r.Context(), id); err != nil {
		respondStoreError(w, r, err, "company")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id.String()}, started)
}

func (h *Handler) handleCreateCompetitor(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	companyID, err := pathUUID(r, "companyID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	var req competitorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	// The parent must exist; competitors never dangle.
	if _, err := h.store.GetCompany(r.Context(), companyID); err != nil {
		respondStoreError(w, r, err, "company")
		return
	}

	competitor := &models.Competitor{
		CompanyID: companyID,
		Name:      req.Name,
		Domain:    req.Domain,
		Keywords:  req.Keywords,
		ChannelID: req.ChannelID,
	}
	if err := h.store.InsertCompetitor(r.Context(), competitor); err != nil {
		respondStoreError(w, r, err, "competitor")
		return
	}
	respondJSON(w, http.StatusCreated, competitor, started)
}

func (h *Handler) handleListCompetitors(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	companyID, err := pathUUID(r, "companyID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	competitors, err := h.store.ListCompetitors(r.Context(), companyID)
	if err != nil {
		respondStoreError(w, r, err, "competitors")
		return
	}
	respondJSON(w, http.StatusOK, listEnvelope{Items: competitors, Total: int64(len(competitors))}, started)
}

func (h *Handler) handleGetCompetitor(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id, err := pathUUID(r, "competitorID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	competitor, err := h.store.GetCompetitor(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err, "competitor")
		return
	}
	respondJSON(w, http.StatusOK, competitor, started)
}

func (h *Handler) handleUpdateCompetitor(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id, err := pathUUID(r, "competitorID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	var req competitorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	existing, err := h.store.GetCompetitor(r.Context(), id)
	if err != nil {
		respondStoreError(w, r, err, "competitor")
		return
	}

	competitor := &models.Competitor{
		ID:        id,
		CompanyID: existing.CompanyID,
		Name:      req.Name,
		Domain:    req.Domain,
		Keywords:  req.Keywords,
		ChannelID: req.ChannelID,
	}
	if err := h.store.UpdateCompetitor(r.Context(), competitor); err != nil {
		respondStoreError(w, r, err, "competitor")
		return
	}
	respondJSON(w, http.StatusOK, competitor, started)
}

func (h *Handler) handleDeleteCompetitor(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	id, err := pathUUID(r, "competitorID")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if err := h.store.DeleteCompetitor(r.Context(), id); err != nil {
		respondStoreError(w, r, err, "competitor")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id.String()}, started)
}
