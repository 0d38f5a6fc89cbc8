package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eugenenazirov/catering-configurator/internal/catalog"
	"github.com/eugenenazirov/catering-configurator/internal/configurator"
	"github.com/eugenenazirov/catering-configurator/internal/defaults"
	"github.com/eugenenazirov/catering-configurator/internal/domain"
	"github.com/eugenenazirov/catering-configurator/internal/session"
	"github.com/eugenenazirov/catering-configurator/internal/state"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const maxBodyBytes = 1 << 20

// Invalidator drops cached catalog data.
type Invalidator interface {
	Invalidate()
}

// Handler wires the session manager and catalog into HTTP handlers.
type Handler struct {
	sessions    *configurator.Manager
	packages    catalog.Packages
	invalidator Invalidator

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithInvalidator sets the catalog cache dropped by the invalidate endpoint.
func WithInvalidator(inv Invalidator) HandlerOption {
	return func(h *Handler) {
		h.invalidator = inv
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(sessions *configurator.Manager, packages catalog.Packages, opts ...HandlerOption) *Handler {
	h := &Handler{
		sessions: sessions,
		packages: packages,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.packages.ListPackages(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, packagesResponse{Packages: pkgs})
}

func (h *Handler) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.packages.Package(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (h *Handler) handleInvalidatePackage(w http.ResponseWriter, r *http.Request) {
	if h.invalidator != nil {
		h.invalidator.Invalidate()
	}
	writeJSON(w, http.StatusOK, invalidateResponse{
		PackageID:     r.PathValue("id"),
		Invalidated:   h.invalidator != nil,
		InvalidatedAt: h.clock(),
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PackageID == "" {
		writeError(w, http.StatusBadRequest, "Invalid request", "packageId is required")
		return
	}
	if req.Targets != nil && (req.Targets.Traditional < 0 || req.Targets.PlantBased < 0 ||
		req.Targets.Traditional+req.Targets.PlantBased > 100.5) {
		writeError(w, http.StatusBadRequest, "Invalid targets", "target percentages must be non-negative and sum to at most 100")
		return
	}

	s, err := h.sessions.Create(r.Context(), configurator.CreateRequest{
		PackageID:  req.PackageID,
		Targets:    req.Targets,
		GuestCount: req.GuestCount,
		Resume:     req.Resume,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newStateResponse(s.ID(), s.State()))
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(s.ID(), s.State()))
}

func (h *Handler) handlePatchState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req patchStateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Value) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid request", "value is required")
		return
	}
	if err := s.Update(req.Path, req.Value); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(s.ID(), s.State()))
}

func (h *Handler) handlePutSplit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req splitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Boneless == nil && req.PlantBased == nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "boneless or plantBased is required")
		return
	}
	if err := s.SetSplit(req.PlantBased, req.Boneless); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(s.ID(), s.State()))
}

func (h *Handler) handlePutPack(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	category, ok := pathCategory(w, r)
	if !ok {
		return
	}
	var req packRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var err error
	if req.Skip {
		err = s.Skip(category, true)
	} else {
		err = s.SetSelections(category, req.Selections)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(s.ID(), s.State()))
}

func (h *Handler) handlePutAddOns(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	category, ok := pathCategory(w, r)
	if !ok {
		return
	}
	var req addOnsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.SetAddOns(category, req.AddOns); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(s.ID(), s.State()))
}

func (h *Handler) handleGetPricing(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := s.Pricing(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetModifications(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	mods, err := s.Modifications()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mods)
}

func (h *Handler) handleGetBreakdown(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	bd, err := s.Breakdown()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bd)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*configurator.Session, bool) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return s, true
}

func pathCategory(w http.ResponseWriter, r *http.Request) (domain.Category, bool) {
	category, err := domain.ParseCategory(r.PathValue("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid category", err.Error())
		return 0, false
	}
	return category, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return false
	}
	return true
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type createSessionRequest struct {
	PackageID  string            `json:"packageId"`
	Targets    *defaults.Targets `json:"targets,omitempty"`
	GuestCount int               `json:"guestCount,omitempty"`
	Resume     bool              `json:"resume,omitempty"`
}

type patchStateRequest struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

type splitRequest struct {
	Boneless   *int `json:"boneless,omitempty"`
	PlantBased *int `json:"plantBased,omitempty"`
}

type packRequest struct {
	Selections []domain.Selection `json:"selections"`
	Skip       bool               `json:"skip"`
}

type addOnsRequest struct {
	AddOns []domain.AddOn `json:"addOns"`
}

type stateResponse struct {
	SessionID string         `json:"sessionId"`
	Version   uint64         `json:"version"`
	State     state.Snapshot `json:"state"`
}

func newStateResponse(id string, snap state.Snapshot) stateResponse {
	return stateResponse{SessionID: id, Version: snap.Version(), State: snap}
}

type packagesResponse struct {
	Packages []domain.Package `json:"packages"`
}

type invalidateResponse struct {
	PackageID     string    `json:"packageId"`
	Invalidated   bool      `json:"invalidated"`
	InvalidatedAt time.Time `json:"invalidatedAt"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}

// writeServiceError maps domain errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, configurator.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found", err.Error(), "create a session with POST /api/sessions")
	case errors.Is(err, catalog.ErrPackageNotFound):
		writeError(w, http.StatusNotFound, "Package not found", err.Error())
	case errors.Is(err, configurator.ErrReadOnlyPath):
		writeError(w, http.StatusForbidden, "Read-only path", err.Error(), "only paths under config. other than the baseline can be written")
	case errors.Is(err, state.ErrInvalidPath),
		errors.Is(err, configurator.ErrInvalidValue),
		errors.Is(err, configurator.ErrNotPackCategory),
		errors.Is(err, domain.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, configurator.ErrBaselineNotLocked):
		writeError(w, http.StatusConflict, "Baseline not locked", err.Error())
	case errors.Is(err, catalog.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Catalog unavailable", err.Error())
	case errors.Is(err, session.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
	default:
		writeInternalError(w, err)
	}
}
