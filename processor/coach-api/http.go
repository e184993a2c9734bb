// Package coachapi exposes the coaching operations and stored records over
// HTTP. Handlers are registered on a caller-provided ServeMux.
package coachapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/execoach/coach"
	"github.com/c360studio/execoach/processor/orchestrator"
	"github.com/c360studio/execoach/storage"
)

// maxRequestBodySize limits request bodies to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// defaultHistoryLimit is used by GET reality-checks/history without ?limit.
const defaultHistoryLimit = 10

// Coach runs the model-backed operations. *orchestrator.Orchestrator
// satisfies it.
type Coach interface {
	GeneratePlan(ctx context.Context, weekStart time.Time) (*coach.WeeklyPlan, error)
	ProcessRealityCheck(ctx context.Context, rc *coach.RealityCheck) (*coach.DeviationReport, error)
	AdjustPlan(ctx context.Context, req *coach.AdjustmentRequest) (*coach.WeeklyPlan, error)
}

// Store is the read and bookkeeping side of the state store. *storage.Store
// satisfies it.
type Store interface {
	LoadProfile(ctx context.Context) (*coach.Profile, error)
	SaveProfile(ctx context.Context, p *coach.Profile) error
	GetPlan(ctx context.Context, weekID string) (*coach.WeeklyPlan, error)
	ListPlans(ctx context.Context) ([]coach.WeeklyPlan, error)
	LatestPlan(ctx context.Context) (*coach.WeeklyPlan, error)
	UpdateDailyAction(ctx context.Context, weekID string, day coach.Day, u storage.DailyActionUpdate) (*coach.WeeklyPlan, error)
	GetDeviationReport(ctx context.Context, weekID string) (*coach.DeviationReport, error)
	GetHistoryEntry(ctx context.Context, weekID string) (*coach.ExecutionHistory, error)
	ListHistory(ctx context.Context, limit int) ([]coach.ExecutionHistory, error)
	Stats(ctx context.Context) (coach.Stats, error)
	Clear(ctx context.Context) error
}

// HealthInfo is the static part of the health response.
type HealthInfo struct {
	Provider           string   `json:"llm_provider"`
	Model              string   `json:"llm_model"`
	ModelConfigured    bool     `json:"llm_configured"`
	AvailableProviders []string `json:"available_providers"`
	DataDir            string   `json:"data_directory"`
	Version            string   `json:"version"`
}

// Handler serves the coaching API.
type Handler struct {
	coach  Coach
	store  Store
	health HealthInfo
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithHealthInfo sets the data reported by the health endpoint.
func WithHealthInfo(info HealthInfo) Option {
	return func(h *Handler) {
		h.health = info
	}
}

// WithClock overrides the time source used for the current week.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// NewHandler creates the API handler.
func NewHandler(c Coach, s Store, opts ...Option) *Handler {
	h := &Handler{
		coach:  c,
		store:  s,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterHTTPHandlers registers all handlers under prefix (e.g. "/api/v1"):
//
//	GET    <prefix>/health
//	GET    <prefix>/status
//	POST   <prefix>/profile
//	GET    <prefix>/profile
//	POST   <prefix>/plans/generate
//	POST   <prefix>/plans/adjust
//	GET    <prefix>/plans
//	GET    <prefix>/plans/latest
//	GET    <prefix>/plans/{week_id}
//	PATCH  <prefix>/plans/{week_id}/days/{day}
//	POST   <prefix>/reality-checks
//	GET    <prefix>/reality-checks/deviation/{week_id}
//	GET    <prefix>/reality-checks/history
//	GET    <prefix>/reality-checks/history/{week_id}
//	DELETE <prefix>/data
func (h *Handler) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	mux.HandleFunc("GET "+prefix+"/health", h.handleHealth)
	mux.HandleFunc("GET "+prefix+"/status", h.handleStatus)

	mux.HandleFunc("POST "+prefix+"/profile", h.handleSaveProfile)
	mux.HandleFunc("GET "+prefix+"/profile", h.handleGetProfile)

	mux.HandleFunc("POST "+prefix+"/plans/generate", h.handleGeneratePlan)
	mux.HandleFunc("POST "+prefix+"/plans/adjust", h.handleAdjustPlan)
	mux.HandleFunc("GET "+prefix+"/plans", h.handleListPlans)
	mux.HandleFunc("GET "+prefix+"/plans/latest", h.handleLatestPlan)
	mux.HandleFunc("GET "+prefix+"/plans/{week_id}", h.handleGetPlan)
	mux.HandleFunc("PATCH "+prefix+"/plans/{week_id}/days/{day}", h.handleUpdateDay)

	mux.HandleFunc("POST "+prefix+"/reality-checks", h.handleRealityCheck)
	mux.HandleFunc("GET "+prefix+"/reality-checks/deviation/{week_id}", h.handleGetDeviation)
	mux.HandleFunc("GET "+prefix+"/reality-checks/history", h.handleListHistory)
	mux.HandleFunc("GET "+prefix+"/reality-checks/history/{week_id}", h.handleGetHistory)

	mux.HandleFunc("DELETE "+prefix+"/data", h.handleClear)
}

// ----------------------------------------------------------------------------
// Health and status
// ----------------------------------------------------------------------------

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	HealthInfo
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", HealthInfo: h.health})
}

// StatusResponse is the response for GET /status.
type StatusResponse struct {
	ProfileExists bool              `json:"profile_exists"`
	CurrentWeekID string            `json:"current_week_id"`
	ActivePlan    *coach.WeeklyPlan `json:"active_plan"`
	Statistics    coach.Stats       `json:"statistics"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.store.Stats(ctx)
	if err != nil {
		h.writeFailure(w, "status", err)
		return
	}

	weekID := coach.WeekID(h.now())
	resp := StatusResponse{
		ProfileExists: stats.ProfileExists,
		CurrentWeekID: weekID,
		Statistics:    stats,
	}
	plan, err := h.store.GetPlan(ctx, weekID)
	switch {
	case err == nil:
		resp.ActivePlan = plan
	case !errors.Is(err, storage.ErrNotFound):
		h.writeFailure(w, "status", err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------------------
// Profile
// ----------------------------------------------------------------------------

func (h *Handler) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in coach.ProfileInput
	if !h.decodeBody(w, r, &in) {
		return
	}

	prev, err := h.store.LoadProfile(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.writeFailure(w, "save profile", err)
		return
	}

	profile, err := coach.NewProfile(prev, in, h.now())
	if err != nil {
		h.writeFailure(w, "save profile", err)
		return
	}
	if err := h.store.SaveProfile(ctx, profile); err != nil {
		h.writeFailure(w, "save profile", err)
		return
	}

	h.logger.Info("Profile saved", "objective_id", profile.Objective.ID, "version", profile.Objective.Version)
	h.writeJSON(w, http.StatusCreated, profile)
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.LoadProfile(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "No profile found. Create one first.")
		return
	}
	if err != nil {
		h.writeFailure(w, "get profile", err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// ----------------------------------------------------------------------------
// Plans
// ----------------------------------------------------------------------------

// GeneratePlanRequest is the optional body of POST /plans/generate.
type GeneratePlanRequest struct {
	WeekStartDate string `json:"week_start_date,omitempty"`
}

func (h *Handler) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req GeneratePlanRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var weekStart time.Time
	if req.WeekStartDate != "" {
		t, err := coach.ParseDate(req.WeekStartDate)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		weekStart = t
	}

	plan, err := h.coach.GeneratePlan(r.Context(), weekStart)
	if err != nil {
		h.writeFailure(w, "generate plan", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, plan)
}

func (h *Handler) handleAdjustPlan(w http.ResponseWriter, r *http.Request) {
	var req coach.AdjustmentRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	plan, err := h.coach.AdjustPlan(r.Context(), &req)
	if err != nil {
		h.writeFailure(w, "adjust plan", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, plan)
}

func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.store.ListPlans(r.Context())
	if err != nil {
		h.writeFailure(w, "list plans", err)
		return
	}
	h.writeJSON(w, http.StatusOK, plans)
}

func (h *Handler) handleLatestPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.store.LatestPlan(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "No plans found. Generate one first.")
		return
	}
	if err != nil {
		h.writeFailure(w, "latest plan", err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	weekID, ok := h.weekIDParam(w, r)
	if !ok {
		return
	}

	plan, err := h.store.GetPlan(r.Context(), weekID)
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("No plan found for week %s", weekID))
		return
	}
	if err != nil {
		h.writeFailure(w, "get plan", err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) handleUpdateDay(w http.ResponseWriter, r *http.Request) {
	weekID, ok := h.weekIDParam(w, r)
	if !ok {
		return
	}
	day, ok := coach.ParseDay(r.PathValue("day"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "day must be one of Mon..Sun")
		return
	}

	var u storage.DailyActionUpdate
	if !h.decodeBody(w, r, &u) {
		return
	}
	if u.Completed == nil && u.ActualNotes == nil {
		h.writeError(w, http.StatusBadRequest, "completed or actual_notes is required")
		return
	}

	plan, err := h.store.UpdateDailyAction(r.Context(), weekID, day, u)
	if err != nil {
		h.writeFailure(w, "update daily action", err)
		return
	}
	h.writeJSON(w, http.StatusOK, plan)
}

// ----------------------------------------------------------------------------
// Reality checks
// ----------------------------------------------------------------------------

func (h *Handler) handleRealityCheck(w http.ResponseWriter, r *http.Request) {
	var rc coach.RealityCheck
	if !h.decodeBody(w, r, &rc) {
		return
	}

	report, err := h.coach.ProcessRealityCheck(r.Context(), &rc)
	if err != nil {
		h.writeFailure(w, "process reality check", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, report)
}

func (h *Handler) handleGetDeviation(w http.ResponseWriter, r *http.Request) {
	weekID, ok := h.weekIDParam(w, r)
	if !ok {
		return
	}

	report, err := h.store.GetDeviationReport(r.Context(), weekID)
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("No deviation report found for week %s", weekID))
		return
	}
	if err != nil {
		h.writeFailure(w, "get deviation report", err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			h.writeError(w, http.StatusBadRequest, "invalid limit: must be 1-1000")
			return
		}
		limit = parsed
	}

	history, err := h.store.ListHistory(r.Context(), limit)
	if err != nil {
		h.writeFailure(w, "list history", err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	weekID, ok := h.weekIDParam(w, r)
	if !ok {
		return
	}

	entry, err := h.store.GetHistoryEntry(r.Context(), weekID)
	if errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("No history found for week %s", weekID))
		return
	}
	if err != nil {
		h.writeFailure(w, "get history", err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

// ----------------------------------------------------------------------------
// Data
// ----------------------------------------------------------------------------

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.writeFailure(w, "clear data", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// decodeBody reads a size-limited JSON body into dst. It writes a 400 and
// returns false on malformed input.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) weekIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	weekID := r.PathValue("week_id")
	if err := coach.ValidateWeekID(weekID); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return weekID, true
}

// StatusFor maps an operation error to its HTTP status code.
func StatusFor(err error) int {
	var opErr *orchestrator.OperationError
	switch {
	case errors.Is(err, coach.ErrProfileRequired):
		return http.StatusBadRequest
	case errors.Is(err, coach.ErrPlanNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, coach.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, orchestrator.ErrNoStructuredOutput), errors.As(err, &opErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure maps err to a status and writes it. Internal errors are
// logged and answered with a generic message.
func (h *Handler) writeFailure(w http.ResponseWriter, action string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "action", action, "error", err)
		h.writeError(w, status, "Failed to "+action)
		return
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to write JSON response", "error", err)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
