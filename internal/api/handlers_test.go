// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/onside-hq/onside/internal/auth"
	"github.com/onside-hq/onside/internal/config"
	"github.com/onside-hq/onside/internal/database"
	"github.com/onside-hq/onside/internal/models"
)

type stubStore struct {
	mu          sync.Mutex
	pingErr     error
	companies   map[uuid.UUID]*models.Company
	competitors map[uuid.UUID]*models.Competitor
	links       []*models.Link
	dedupeLog   map[uuid.UUID]*models.DedupeEntry
	reports     map[uuid.UUID]*models.Report
	schedules   map[uuid.UUID]*models.ReportSchedule
	users       map[string]*models.User
}

func newStubStore() *stubStore {
	return &stubStore{
		companies:   make(map[uuid.UUID]*models.Company),
		competitors: make(map[uuid.UUID]*models.Competitor),
		dedupeLog:   make(map[uuid.UUID]*models.DedupeEntry),
		reports:     make(map[uuid.UUID]*models.Report),
		schedules:   make(map[uuid.UUID]*models.ReportSchedule),
		users:       make(map[string]*models.User),
	}
}

func (s *stubStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubStore) InsertCompany(ctx context.Context, c *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.companies[c.ID] = c
	return nil
}

func (s *stubStore) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return c, nil
}

func (s *stubStore) ListCompanies(ctx context.Context, limit, offset int) ([]*models.Company, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (s *stubStore) UpdateCompany(ctx context.Context, c *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[c.ID]; !ok {
		return database.ErrNotFound
	}
	s.companies[c.ID] = c
	return nil
}

func (s *stubStore) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.companies, id)
	return nil
}

func (s *stubStore) InsertCompetitor(ctx context.Context, c *models.Competitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.competitors[c.ID] = c
	return nil
}

func (s *stubStore) GetCompetitor(ctx context.Context, id uuid.UUID) (*models.Competitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.competitors[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return c, nil
}

func (s *stubStore) ListCompetitors(ctx context.Context, companyID uuid.UUID) ([]*models.Competitor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Competitor
	for _, c := range s.competitors {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubStore) UpdateCompetitor(ctx context.Context, c *models.Competitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.competitors[c.ID]; !ok {
		return database.ErrNotFound
	}
	s.competitors[c.ID] = c
	return nil
}

func (s *stubStore) DeleteCompetitor(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.competitors[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.competitors, id)
	return nil
}

func (s *stubStore) ListLinks(ctx context.Context, filter database.LinkFilter) ([]*models.Link, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Link
	for _, l := range s.links {
		if filter.CompetitorID != nil && l.CompetitorID != *filter.CompetitorID {
			continue
		}
		if filter.Provider != "" && l.Provider != filter.Provider {
			continue
		}
		if filter.DedupeStatus != "" && l.DedupeStatus != filter.DedupeStatus {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (s *stubStore) ListDedupeEntries(ctx context.Context, filter database.DedupeFilter) ([]*models.DedupeEntry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.DedupeEntry
	for _, e := range s.dedupeLog {
		if filter.CompetitorID != nil && e.CompetitorID != *filter.CompetitorID {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (s *stubStore) GetDedupeEntry(ctx context.Context, id uuid.UUID) (*models.DedupeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.dedupeLog[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return e, nil
}

func (s *stubStore) InsertReport(ctx context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	s.reports[r.ID] = r
	return nil
}

func (s *stubStore) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return r, nil
}

func (s *stubStore) ListReports(ctx context.Context, filter database.ReportFilter) ([]*models.Report, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Report
	for _, r := range s.reports {
		if filter.CompanyID != nil && r.CompanyID != *filter.CompanyID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (s *stubStore) InsertReportSchedule(ctx context.Context, sched *models.ReportSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sched.ID == uuid.Nil {
		sched.ID = uuid.New()
	}
	s.schedules[sched.ID] = sched
	return nil
}

func (s *stubStore) GetReportSchedule(ctx context.Context, id uuid.UUID) (*models.ReportSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.schedules[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return sched, nil
}

func (s *stubStore) ListReportSchedules(ctx context.Context) ([]*models.ReportSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.ReportSchedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		out = append(out, sched)
	}
	return out, nil
}

func (s *stubStore) DeleteReportSchedule(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.schedules, id)
	return nil
}

func (s *stubStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func (s *stubStore) TouchUserLogin(ctx context.Context, id uuid.UUID) error { return nil }

type stubRunner struct {
	mu     sync.Mutex
	built  []uuid.UUID
	done   chan struct{}
	result error
}

func (r *stubRunner) Build(ctx context.Context, report *models.Report) error {
	r.mu.Lock()
	r.built = append(r.built, report.ID)
	r.mu.Unlock()
	if r.done != nil {
		close(r.done)
	}
	return r.result
}

type stubRededuper struct {
	demoted int
	err     error
}

func (r *stubRededuper) Rededupe(ctx context.Context, competitorID uuid.UUID) (int, error) {
	return r.demoted, r.err
}

type stubUsage struct {
	usages []*models.APIUsage
	err    error
}

func (u *stubUsage) Snapshot(ctx context.Context) ([]*models.APIUsage, error) {
	return u.usages, u.err
}

func testConfig(authMode string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, Environment: "development"},
		Security: config.SecurityConfig{
			AuthMode:       authMode,
			JWTSecret:      "test-secret-test-secret-test-secret",
			SessionTimeout: time.Hour,
			AdminUsername:  "admin",
			AdminPassword:  "swordfish",
		},
		Reports: config.ReportsConfig{
			DefaultPeriodDays:   7,
			MaxConcurrentBuilds: 2,
			BuildTimeout:        time.Minute,
		},
	}
}

type testEnv struct {
	store     *stubStore
	runner    *stubRunner
	rededuper *stubRededuper
	usage     *stubUsage
	handler   http.Handler
}

func newTestEnv(t *testing.T, authMode string) *testEnv {
	t.Helper()
	cfg := testConfig(authMode)
	store := newStubStore()
	runner := &stubRunner{}
	rededuper := &stubRededuper{}
	usage := &stubUsage{}
	manager := auth.NewManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	h := NewHandler(store, manager, cfg, runner, rededuper, usage)
	return &testEnv{
		store:     store,
		runner:    runner,
		rededuper: rededuper,
		usage:     usage,
		handler:   NewRouter(h, cfg),
	}
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t, "none")
	rec, resp := doRequest(t, env.handler, http.MethodGet, "/api/v1/health/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Status != "success" {
		t.Errorf("envelope status = %q, want success", resp.Status)
	}
}

func TestHealthReadyDatabaseDown(t *testing.T) {
	env := newTestEnv(t, "none")
	env.store.pingErr = errors.New("connection refused")
	rec, resp := doRequest(t, env.handler, http.MethodGet, "/api/v1/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeUnavailable {
		t.Errorf("error = %+v, want code %q", resp.Error, codeUnavailable)
	}
}

func TestLoginAndAuthGuard(t *testing.T) {
	env := newTestEnv(t, "jwt")

	// No token: the data groups reject.
	rec, _ := doRequest(t, env.handler, http.MethodGet, "/api/v1/companies", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list status = %d, want 401", rec.Code)
	}

	rec, resp := doRequest(t, env.handler, http.MethodPost, "/api/v1/auth/login",
		`{"username":"admin","password":"swordfish"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var pair auth.TokenPair
	if err := json.Unmarshal(resp.Data, &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected non-empty token pair")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authenticated list status = %d, want 200", rr.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t, "jwt")
	rec, resp := doRequest(t, env.handler, http.MethodPost, "/api/v1/auth/login",
		`{"username":"admin","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if resp.Error == nil || resp.Error.Message != "invalid credentials" {
		t.Errorf("error = %+v, want invalid credentials", resp.Error)
	}
}

func TestRefreshFlow(t *testing.T) {
	env := newTestEnv(t, "jwt")
	_, resp := doRequest(t, env.handler, http.MethodPost, "/api/v1/auth/login",
		`{"username":"admin","password":"swordfish"}`)
	var pair auth.TokenPair
	if err := json.Unmarshal(resp.Data, &pair); err != nil {
		t.Fatalf("decode token pair: %v", err)
	}

	rec, _ := doRequest(t, env.handler, http.MethodPost, "/api/v1/auth/refresh",
		`{"refresh_token":"`+pair.RefreshToken+`"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("refresh status = %d, want 200", rec.Code)
	}

	rec, _ = doRequest(t, env.handler, http.MethodPost, "/api/v1/auth/refresh",
		`{"refresh_token":"garbage"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage refresh status = %d, want 401", rec.Code)
	}
}

func TestCompanyCRUD(t *testing.T) {
	env := newTestEnv(t, "none")

	rec, resp := doRequest(t, env.handler, http.MethodPost, "/api/v1/companies",
		`{"name":"Acme","domain":"acme.test"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var company models.Company
	if err := json.Unmarshal(resp.Data, &company); err != nil {
		t.Fatalf("decode company: %v", err)
	}
	if company.ID == uuid.Nil {
		t.Fatal("expected assigned ID")
	}

	rec, _ = doRequest(t, env.handler, http.MethodGet, "/api/v1/companies/"+company.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", rec.Code)
	}

	rec, _ = doRequest(t, env.handler, http.MethodPut, "/api/v1/companies/"+company.ID.String(),
		`{"name":"Acme Corp","domain":"acme.test"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("update status = %d, want 200", rec.Code)
	}

	rec, _ = doRequest(t, env.handler, http.MethodDelete, "/api/v1/companies/"+company.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", rec.Code)
	}

	rec, resp = doRequest(t, env.handler, http.MethodGet, "/api/v1/companies/"+company.ID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != codeNotFound {
		t.Errorf("error = %+v, want code %q", resp.Error, codeNotFound)
	}
}

func TestCreateCompanyValidation(t *testing.T) {
	env := newTestEnv(t, "none")

	rec, _ := doRequest(t, env.handler, http.MethodPost, "/api/v1/companies", `{"domain":"acme.test"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", rec.Code)
	}

	rec, _ = doRequest(t, env.handler, http.MethodPost, "/api/v1/companies", `{"name":"Acme","bogus":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", rec.Code)
	}
}

func TestCreateCompetitorRequiresCompany(t *testing.T) {
	env := newTestEnv(t, "none")

	rec, _ := doRequest(t, env.handler, http.MethodPost,
		"/api/v1/companies/"+uuid.NewString()+"/competitors",
		`{"name":"Rival","keywords":["rival"]}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListLinksRejectsBadFilter(t *testing.T) {
	env := newTestEnv(t, "none")
	rec, _ := doRequest(t, env.handler, http.MethodGet, "/api/v1/links?competitor_id=not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	rec, _ = doRequest(t, env.handler, http.MethodGet, "/api/v1/links?from=yesterday", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad from status = %d, want 400", rec.Code)
	}
}

func TestListLinksFilters(t *testing.T) {
	env := newTestEnv(t, "none")
	competitorID := uuid.New()
	env.store.links = []*models.Link{
		{ID: uuid.New(), CompetitorID: competitorID, Provider: "gnews", DedupeStatus: models.LinkStatusKept},
		{ID: uuid.New(), CompetitorID: uuid.New(), Provider: "gnews", DedupeStatus: models.LinkStatusKept},
	}

	rec, resp := doRequest(t, env.handler, http.MethodGet,
		"/api/v1/links?competitor_id="+competitorID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Items []*models.Link `json:"items"`
		Total int64          `json:"total"`
	}
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Errorf("got %d items (total %d), want 1", len(page.Items), page.Total)
	}
}

func TestRededupe(t *testing.T) {
	env := newTestEnv(t, "none")
	env.rededuper.demoted = 3

	rec, resp := doRequest(t, env.handler, http.MethodPost, "/api/v1/links/rededupe",
		`{"competitor_id":"`+uuid.NewString()+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out map[string]int
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["demoted"] != 3 {
		t.Errorf("demoted = %d, want 3", out["demoted"])
	}
}

func TestCreateReportBuildsAsync(t *testing.T) {
	env := newTestEnv(t, "none")
	env.runner.done = make(chan struct{})

	company := &models.Company{Name: "Acme"}
	if err := env.store.InsertCompany(context.Background(), company); err != nil {
		t.Fatal(err)
	}

	rec, resp := doRequest(t, env.handler, http.MethodPost, "/api/v1/reports",
		`{"company_id":"`+company.ID.String()+`"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var report models.Report
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != models.ReportStatusPending {
		t.Errorf("status = %q, want pending", report.Status)
	}
	if got := report.PeriodEnd.Sub(report.PeriodStart); got != 7*24*time.Hour {
		t.Errorf("period = %v, want 168h", got)
	}

	select {
	case <-env.runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("build was not triggered")
	}
}

func TestCreateReportUnknownCompany(t *testing.T) {
	env := newTestEnv(t, "none")
	rec, _ := doRequest(t, env.handler, http.MethodPost, "/api/v1/reports",
		`{"company_id":"`+uuid.NewString()+`"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadReport(t *testing.T) {
	env := newTestEnv(t, "none")

	pending := &models.Report{ID: uuid.New(), CompanyID: uuid.New(), Status: models.ReportStatusPending}
	env.store.reports[pending.ID] = pending

	rec, _ := doRequest(t, env.handler, http.MethodGet,
		"/api/v1/reports/"+pending.ID.String()+"/download", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("pending download status = %d, want 409", rec.Code)
	}

	pdfPath := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatal(err)
	}
	completed := &models.Report{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		Status:    models.ReportStatusCompleted,
		PDFPath:   pdfPath,
	}
	env.store.reports[completed.ID] = completed

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+completed.ID.String()+"/download", nil)
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("completed download status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	if !strings.Contains(rr.Body.String(), "%PDF") {
		t.Error("expected PDF bytes in response")
	}
}

func TestScheduleCRUD(t *testing.T) {
	env := newTestEnv(t, "none")

	company := &models.Company{Name: "Acme"}
	if err := env.store.InsertCompany(context.Background(), company); err != nil {
		t.Fatal(err)
	}

	rec, resp := doRequest(t, env.handler, http.MethodPost, "/api/v1/reports/schedules",
		`{"company_id":"`+company.ID.String()+`","interval_seconds":86400}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var schedule models.ReportSchedule
	if err := json.Unmarshal(resp.Data, &schedule); err != nil {
		t.Fatalf("decode schedule: %v", err)
	}
	if schedule.Interval != 24*time.Hour {
		t.Errorf("interval = %v, want 24h", schedule.Interval)
	}
	if schedule.PeriodDays != 7 {
		t.Errorf("period_days = %d, want default 7", schedule.PeriodDays)
	}
	if !schedule.Enabled {
		t.Error("expected schedule enabled by default")
	}

	rec, _ = doRequest(t, env.handler, http.MethodGet, "/api/v1/reports/schedules", "")
	if rec.Code != http.StatusOK {
		t.Errorf("list status = %d, want 200", rec.Code)
	}

	rec, _ = doRequest(t, env.handler, http.MethodDelete,
		"/api/v1/reports/schedules/"+schedule.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", rec.Code)
	}
}

func TestCreateScheduleRejectsShortInterval(t *testing.T) {
	env := newTestEnv(t, "none")
	rec, _ := doRequest(t, env.handler, http.MethodPost, "/api/v1/reports/schedules",
		`{"company_id":"`+uuid.NewString()+`","interval_seconds":10}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUsageSnapshot(t *testing.T) {
	env := newTestEnv(t, "none")
	env.usage.usages = []*models.APIUsage{
		{Provider: "gnews", Day: "2026-08-23", Requests: 90, QuotaLimit: 100},
		{Provider: "ipinfo", Day: "2026-08-23", Requests: 5},
	}

	rec, resp := doRequest(t, env.handler, http.MethodGet, "/api/v1/usage", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Items []struct {
			Provider  string `json:"provider"`
			Requests  int64  `json:"requests"`
			Remaining *int64 `json:"remaining"`
		} `json:"items"`
	}
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(page.Items))
	}
	for _, item := range page.Items {
		switch item.Provider {
		case "gnews":
			if item.Remaining == nil || *item.Remaining != 10 {
				t.Errorf("gnews remaining = %v, want 10", item.Remaining)
			}
		case "ipinfo":
			if item.Remaining != nil {
				t.Errorf("ipinfo remaining = %v, want omitted for unlimited", *item.Remaining)
			}
		}
	}
}

func TestNilDependenciesReturn503(t *testing.T) {
	cfg := testConfig("none")
	store := newStubStore()
	manager := auth.NewManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	h := NewHandler(store, manager, cfg, nil, nil, nil)
	router := NewRouter(h, cfg)

	company := &models.Company{Name: "Acme"}
	if err := store.InsertCompany(context.Background(), company); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/v1/reports", `{"company_id":"` + company.ID.String() + `"}`},
		{http.MethodPost, "/api/v1/links/rededupe", `{"competitor_id":"` + uuid.NewString() + `"}`},
		{http.MethodGet, "/api/v1/usage", ""},
	}
	for _, tc := range cases {
		rec, _ := doRequest(t, router, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s status = %d, want 503", tc.method, tc.path, rec.Code)
		}
	}
}
